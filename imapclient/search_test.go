package imapclient_test

import (
	"testing"

	"github.com/cloudmail/imapengine"
)

func TestSearch(t *testing.T) {
	client, server := newClientServerPair(t, imap.ConnStateSelected, func(srv *fakeServer) {
		tag := srv.readCommand() // SEARCH HEADER Message-Id ...
		srv.writeLine("* SEARCH 1")
		srv.writeLine("%s OK SEARCH completed", tag)
	})
	defer client.Close()
	defer server.Close()

	criteria := imap.SearchCriteria{
		Header: []imap.SearchCriteriaHeaderField{{
			Key:   "Message-Id",
			Value: "<191101702316132@example.com>",
		}},
	}
	data, err := client.Search(&criteria).Wait()
	if err != nil {
		t.Fatalf("Search().Wait() = %v", err)
	}
	if want := []uint32{1}; len(data.Nums) != 1 || data.Nums[0] != want[0] {
		t.Errorf("Nums = %v, want %v", data.Nums, want)
	}
}
