package models

import (
	"sort"
	"time"
)

// RecordSet is an ordered, timestamp-deduplicated collection of records.
// It is not safe for concurrent use; owners serialize access.
type RecordSet struct {
	keys    map[int64]struct{}
	records []TouchRecord
}

func NewRecordSet() *RecordSet {
	return &RecordSet{
		keys: make(map[int64]struct{}),
	}
}

// Insert adds rec in timestamp order. Returns false when a record with the
// same timestamp is already present.
func (s *RecordSet) Insert(rec TouchRecord) bool {
	key := rec.Key()
	if _, ok := s.keys[key]; ok {
		return false
	}
	s.keys[key] = struct{}{}

	idx := sort.Search(len(s.records), func(i int) bool {
		return s.records[i].Key() > key
	})
	s.records = append(s.records, TouchRecord{})
	copy(s.records[idx+1:], s.records[idx:])
	s.records[idx] = rec
	return true
}

func (s *RecordSet) Contains(rec TouchRecord) bool {
	_, ok := s.keys[rec.Key()]
	return ok
}

func (s *RecordSet) Len() int {
	return len(s.records)
}

func (s *RecordSet) All() []TouchRecord {
	out := make([]TouchRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Since returns records at or after t.
func (s *RecordSet) Since(t time.Time) []TouchRecord {
	return s.Between(t, time.Time{})
}

// Between returns records in [from, to). A zero to means no upper bound.
func (s *RecordSet) Between(from, to time.Time) []TouchRecord {
	lo := sort.Search(len(s.records), func(i int) bool {
		return !s.records[i].Timestamp.Before(from)
	})
	hi := len(s.records)
	if !to.IsZero() {
		hi = sort.Search(len(s.records), func(i int) bool {
			return !s.records[i].Timestamp.Before(to)
		})
	}
	if lo >= hi {
		return []TouchRecord{}
	}
	out := make([]TouchRecord, hi-lo)
	copy(out, s.records[lo:hi])
	return out
}

// StartOfDay truncates t to local midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
