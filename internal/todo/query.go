package todo

import (
	"cmp"
	"slices"
	"strings"
)

// Bucket is one of the fixed filter tabs.
type Bucket string

const (
	BucketAll    Bucket = "all"
	BucketActive Bucket = "active"
	BucketDone   Bucket = "done"
)

// Buckets lists the tabs in display order.
func Buckets() []Bucket {
	return []Bucket{BucketAll, BucketActive, BucketDone}
}

// ParseBucket maps a tab key to a Bucket. Unknown keys mean all.
func ParseBucket(s string) Bucket {
	switch Bucket(strings.ToLower(strings.TrimSpace(s))) {
	case BucketActive:
		return BucketActive
	case BucketDone:
		return BucketDone
	default:
		return BucketAll
	}
}

func (b Bucket) Title() string {
	switch b {
	case BucketActive:
		return "Active"
	case BucketDone:
		return "Done"
	default:
		return "All"
	}
}

func (b Bucket) match(r Record) bool {
	switch b {
	case BucketActive:
		return !r.Completed
	case BucketDone:
		return r.Completed
	default:
		return true
	}
}

// Order is the id sort direction.
type Order string

const (
	Ascending  Order = "asc"
	Descending Order = "desc"
)

// ParseOrder maps s to an Order. Anything other than desc means ascending.
func ParseOrder(s string) Order {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "desc", "descending":
		return Descending
	default:
		return Ascending
	}
}

func (o Order) Flip() Order {
	if o == Descending {
		return Ascending
	}
	return Descending
}

// Counts holds the size of each bucket over the whole collection.
type Counts struct {
	All    int
	Active int
	Done   int
}

func (c Counts) Of(b Bucket) int {
	switch b {
	case BucketActive:
		return c.Active
	case BucketDone:
		return c.Done
	default:
		return c.All
	}
}

// FilterBy returns the records that belong to bucket, in input order.
func FilterBy(records []Record, bucket Bucket) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if bucket.match(r) {
			out = append(out, r)
		}
	}
	return out
}

// SortBy returns a copy of records ordered by id. The input is not modified.
func SortBy(records []Record, order Order) []Record {
	out := slices.Clone(records)
	slices.SortFunc(out, func(a, b Record) int {
		if order == Descending {
			return cmp.Compare(b.ID, a.ID)
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// CountBy counts every bucket in one pass.
func CountBy(records []Record) Counts {
	c := Counts{All: len(records)}
	for _, r := range records {
		if r.Completed {
			c.Done++
		} else {
			c.Active++
		}
	}
	return c
}

// View is the list shown for a tab: filtered first, then sorted by id.
func View(records []Record, bucket Bucket, order Order) []Record {
	return SortBy(FilterBy(records, bucket), order)
}
