package bucketing

import (
	"hash"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"
)

// BucketingManager spreads keys over a fixed number of partitions with
// murmur3, so related audit events land in the same Kafka partition key
// and ClickHouse bucket.
type BucketingManager struct {
	buckets    int
	hasherPool sync.Pool
}

type BucketAssignment struct {
	Bucket     int    `json:"bucket"`
	DateBucket string `json:"date_bucket"`
}

func NewBucketingManager(buckets int) *BucketingManager {
	if buckets <= 0 {
		buckets = 1
	}
	return &BucketingManager{
		buckets: buckets,
		hasherPool: sync.Pool{
			New: func() any { return murmur3.New64() },
		},
	}
}

// Bucket returns a stable bucket in [0, Buckets()).
func (bm *BucketingManager) Bucket(key string) int {
	return int(bm.hash(key) % uint64(bm.buckets))
}

// DateBucket is the UTC day of t.
func (bm *BucketingManager) DateBucket(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func (bm *BucketingManager) Assign(key string, at time.Time) BucketAssignment {
	return BucketAssignment{
		Bucket:     bm.Bucket(key),
		DateBucket: bm.DateBucket(at),
	}
}

func (bm *BucketingManager) Buckets() int {
	return bm.buckets
}

func (bm *BucketingManager) hash(key string) uint64 {
	h := bm.hasherPool.Get().(hash.Hash64)
	defer bm.hasherPool.Put(h)

	h.Reset()
	h.Write([]byte(key))
	return h.Sum64()
}
