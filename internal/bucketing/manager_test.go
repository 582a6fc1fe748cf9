package bucketing

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBucket_StableAndInRange(t *testing.T) {
	bm := NewBucketingManager(8)

	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("actor-%d", i)
		b := bm.Bucket(key)
		assert.GreaterOrEqual(t, b, 0)
		assert.Less(t, b, 8)
		assert.Equal(t, b, bm.Bucket(key))
		seen[b] = true
	}
	assert.Len(t, seen, 8, "200 keys should touch every bucket")
}

func TestNewBucketingManager_NonPositive(t *testing.T) {
	bm := NewBucketingManager(0)
	assert.Equal(t, 1, bm.Buckets())
	assert.Equal(t, 0, bm.Bucket("anything"))
}

func TestAssign(t *testing.T) {
	bm := NewBucketingManager(4)
	at := time.Date(2026, 3, 9, 23, 30, 0, 0, time.FixedZone("X", -2*3600))

	a := bm.Assign("k", at)
	assert.Equal(t, "2026-03-10", a.DateBucket)
	assert.Equal(t, bm.Bucket("k"), a.Bucket)
}
