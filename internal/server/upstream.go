package server

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"scoreview/internal/models"
)

const (
	upstreamBucketMinutes = 10
	upstreamBucketCount   = 6
	upstreamStateUnknown  = "unknown"
	upstreamStateOK       = "ok"
	upstreamStateIssue    = "issue"
)

type upstreamSnapshot struct {
	GeneratedAt   time.Time           `json:"generated_at"`
	RangeStart    time.Time           `json:"range_start"`
	RangeEnd      time.Time           `json:"range_end"`
	BucketSeconds int                 `json:"bucket_seconds"`
	Latest        *models.FetchSample `json:"latest,omitempty"`
	Endpoints     []upstreamEndpoint  `json:"endpoints"`
}

type upstreamEndpoint struct {
	Endpoint string           `json:"endpoint"`
	Buckets  []upstreamBucket `json:"buckets"`
}

type upstreamBucket struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	State  string    `json:"state"`
	Detail string    `json:"detail,omitempty"`
}

type timeBucket struct {
	Start time.Time
	End   time.Time
}

// handleUpstream summarises the watcher's gameserver requests in fixed time buckets.
func (s *Server) handleUpstream(w http.ResponseWriter, r *http.Request) {
	if s.watcher == nil {
		writeError(w, http.StatusServiceUnavailable, "watcher is disabled")
		return
	}
	count := upstreamBucketCount
	if raw := r.URL.Query().Get("buckets"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 144 {
			count = v
		}
	}
	writeJSON(w, http.StatusOK, s.buildUpstreamSnapshot(time.Now().UTC(), count))
}

func (s *Server) buildUpstreamSnapshot(now time.Time, count int) upstreamSnapshot {
	bucketDuration := time.Duration(upstreamBucketMinutes) * time.Minute
	rangeStart := now.Add(-bucketDuration * time.Duration(count))
	buckets := buildTimeBuckets(rangeStart, bucketDuration, count)

	byEndpoint := map[string][]models.FetchSample{}
	for _, sample := range s.watcher.HistorySince(rangeStart) {
		byEndpoint[sample.Endpoint] = append(byEndpoint[sample.Endpoint], sample)
	}
	names := make([]string, 0, len(byEndpoint))
	for name := range byEndpoint {
		names = append(names, name)
	}
	sort.Strings(names)

	snapshot := upstreamSnapshot{
		GeneratedAt:   now,
		RangeStart:    rangeStart,
		RangeEnd:      now,
		BucketSeconds: int(bucketDuration / time.Second),
		Endpoints:     make([]upstreamEndpoint, 0, len(names)),
	}
	if latest, ok := s.watcher.Latest(); ok {
		snapshot.Latest = &latest
	}
	for _, name := range names {
		snapshot.Endpoints = append(snapshot.Endpoints, upstreamEndpoint{
			Endpoint: name,
			Buckets:  buildUpstreamBuckets(buckets, byEndpoint[name]),
		})
	}
	return snapshot
}

func buildTimeBuckets(start time.Time, duration time.Duration, count int) []timeBucket {
	result := make([]timeBucket, 0, count)
	current := start
	for i := 0; i < count; i++ {
		end := current.Add(duration)
		result = append(result, timeBucket{Start: current, End: end})
		current = end
	}
	return result
}

func bucketIndex(ts time.Time, buckets []timeBucket) int {
	if len(buckets) == 0 {
		return -1
	}
	last := len(buckets) - 1
	if ts.Equal(buckets[last].End) {
		return last
	}
	if ts.Before(buckets[0].Start) || ts.After(buckets[last].End) {
		return -1
	}
	for i, bucket := range buckets {
		if !ts.Before(bucket.Start) && ts.Before(bucket.End) {
			return i
		}
	}
	return -1
}

// buildUpstreamBuckets marks a bucket as an issue when any of its samples failed.
func buildUpstreamBuckets(buckets []timeBucket, samples []models.FetchSample) []upstreamBucket {
	result := make([]upstreamBucket, len(buckets))
	for i, bucket := range buckets {
		result[i] = upstreamBucket{Start: bucket.Start, End: bucket.End, State: upstreamStateUnknown}
	}
	for _, sample := range samples {
		idx := bucketIndex(sample.CheckedAt.UTC(), buckets)
		if idx == -1 {
			continue
		}
		if sample.OK {
			detail := ""
			if sample.LatencyMs > 0 {
				detail = fmt.Sprintf("%d ms", sample.LatencyMs)
			}
			setBucketOK(&result[idx], detail)
			continue
		}
		detail := strings.TrimSpace(sample.Error)
		if detail == "" {
			detail = "unreachable"
		}
		setBucketIssue(&result[idx], detail)
	}
	return result
}

func setBucketOK(bucket *upstreamBucket, detail string) {
	if bucket.State == upstreamStateIssue {
		return
	}
	bucket.State = upstreamStateOK
	if detail != "" {
		bucket.Detail = detail
	}
}

func setBucketIssue(bucket *upstreamBucket, detail string) {
	bucket.State = upstreamStateIssue
	if detail != "" {
		bucket.Detail = detail
	}
}
