package imap

import (
	"time"
)

// SearchCriteria represents the search criteria of a SEARCH command.
//
// When multiple fields are populated, the result is the intersection
// ("and" operation) of messages matching all of them.
//
// Not and Or combine criteria. For example, the following criteria matches
// messages that do not contain "hello":
//
//	SearchCriteria{Not: []SearchCriteria{{
//		Body: []string{"hello"},
//	}}}
//
// The following criteria matches messages containing "hello" or "world":
//
//	SearchCriteria{Or: [][2]SearchCriteria{{
//		{Body: []string{"hello"}},
//		{Body: []string{"world"}},
//	}}}
type SearchCriteria struct {
	SeqNum []SeqSet
	UID    []UIDSet

	// Only the date is used, time and timezone are ignored.
	Since      time.Time
	Before     time.Time
	SentSince  time.Time
	SentBefore time.Time

	Header []SearchCriteriaHeaderField
	Body   []string
	Text   []string

	Flag    []Flag
	NotFlag []Flag

	Larger  int64
	Smaller int64

	Not []SearchCriteria
	Or  [][2]SearchCriteria
}

// And merges other into criteria, intersecting both sets of conditions.
func (criteria *SearchCriteria) And(other *SearchCriteria) {
	criteria.SeqNum = append(criteria.SeqNum, other.SeqNum...)
	criteria.UID = append(criteria.UID, other.UID...)

	criteria.Since = intersectSince(criteria.Since, other.Since)
	criteria.Before = intersectBefore(criteria.Before, other.Before)
	criteria.SentSince = intersectSince(criteria.SentSince, other.SentSince)
	criteria.SentBefore = intersectBefore(criteria.SentBefore, other.SentBefore)

	criteria.Header = append(criteria.Header, other.Header...)
	criteria.Body = append(criteria.Body, other.Body...)
	criteria.Text = append(criteria.Text, other.Text...)

	criteria.Flag = append(criteria.Flag, other.Flag...)
	criteria.NotFlag = append(criteria.NotFlag, other.NotFlag...)

	if criteria.Larger == 0 || other.Larger > criteria.Larger {
		criteria.Larger = other.Larger
	}
	if criteria.Smaller == 0 || (other.Smaller > 0 && other.Smaller < criteria.Smaller) {
		criteria.Smaller = other.Smaller
	}

	criteria.Not = append(criteria.Not, other.Not...)
	criteria.Or = append(criteria.Or, other.Or...)
}

func intersectSince(t1, t2 time.Time) time.Time {
	switch {
	case t1.IsZero():
		return t2
	case t2.IsZero():
		return t1
	case t1.After(t2):
		return t1
	default:
		return t2
	}
}

func intersectBefore(t1, t2 time.Time) time.Time {
	switch {
	case t1.IsZero():
		return t2
	case t2.IsZero():
		return t1
	case t1.Before(t2):
		return t1
	default:
		return t2
	}
}

// SearchCriteriaHeaderField is a header field to search for, as a key/value
// pair. An empty Value matches any header field with that name present.
type SearchCriteriaHeaderField struct {
	Key, Value string
}

// SearchData is the data returned by a SEARCH or UID SEARCH command.
//
// Nums holds the matched numbers in the order the server returned them. UID
// reports whether they are message UIDs (the command was UID SEARCH) or
// sequence numbers.
type SearchData struct {
	UID  bool
	Nums []uint32
}

// SeqNums returns Nums as a SeqSet. It panics if UID is true.
func (data *SearchData) SeqNums() SeqSet {
	if data.UID {
		panic("imap: SearchData.Nums holds UIDs, not sequence numbers")
	}
	return SeqSetNum(data.Nums...)
}

// UIDs returns Nums as a UIDSet. It panics if UID is false.
func (data *SearchData) UIDs() UIDSet {
	if !data.UID {
		panic("imap: SearchData.Nums holds sequence numbers, not UIDs")
	}
	uids := make([]UID, len(data.Nums))
	for i, n := range data.Nums {
		uids[i] = UID(n)
	}
	return UIDSetNum(uids...)
}
