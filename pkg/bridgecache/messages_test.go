// Copyright 2024-2026 Aiku AI

package bridgecache

import (
	"fmt"
	"sync"
	"testing"
)

func TestMessageCacheRecordAndFind(t *testing.T) {
	t.Parallel()
	c := NewMessageCache(DiscordToRevolt, 10)
	c.Record("d1", "author1", "r1", "chan1")

	corr, ok := c.FindBySource("d1")
	if !ok {
		t.Fatal("FindBySource: expected hit")
	}
	if corr.TargetMessageID != "r1" {
		t.Errorf("TargetMessageID: got %q, want %q", corr.TargetMessageID, "r1")
	}
	if corr.SourceAuthorID != "author1" {
		t.Errorf("SourceAuthorID: got %q, want %q", corr.SourceAuthorID, "author1")
	}
	if corr.ChannelID != "chan1" {
		t.Errorf("ChannelID: got %q, want %q", corr.ChannelID, "chan1")
	}
	if corr.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	byTarget, ok := c.FindByTarget("r1")
	if !ok {
		t.Fatal("FindByTarget: expected hit")
	}
	if byTarget.SourceMessageID != "d1" {
		t.Errorf("FindByTarget SourceMessageID: got %q, want %q", byTarget.SourceMessageID, "d1")
	}

	if _, ok := c.FindBySource("missing"); ok {
		t.Error("FindBySource: unexpected hit for unknown source")
	}
	if _, ok := c.FindByTarget("missing"); ok {
		t.Error("FindByTarget: unexpected hit for unknown target")
	}
}

func TestMessageCacheEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()
	c := NewMessageCache(RevoltToDiscord, 3)
	for i := range 3 {
		c.Record(fmt.Sprintf("s%d", i), "a", fmt.Sprintf("t%d", i), "c")
	}
	// Touch s0 so s1 becomes the oldest.
	if _, ok := c.FindBySource("s0"); !ok {
		t.Fatal("s0 should be present")
	}
	c.Record("s3", "a", "t3", "c")

	if c.Len() != 3 {
		t.Errorf("Len: got %d, want 3", c.Len())
	}
	if _, ok := c.FindBySource("s1"); ok {
		t.Error("s1 should have been evicted")
	}
	if _, ok := c.FindByTarget("t1"); ok {
		t.Error("target index should drop evicted entries")
	}
	for _, id := range []string{"s0", "s2", "s3"} {
		if _, ok := c.FindBySource(id); !ok {
			t.Errorf("%s should still be present", id)
		}
	}
}

func TestMessageCacheForget(t *testing.T) {
	t.Parallel()
	c := NewMessageCache(DiscordToRevolt, 10)
	c.Record("d1", "a", "r1", "c")
	if !c.Forget("d1") {
		t.Error("Forget: expected true for known source")
	}
	if c.Forget("d1") {
		t.Error("Forget: expected false on second call")
	}
	if _, ok := c.FindBySource("d1"); ok {
		t.Error("FindBySource after Forget should miss")
	}
	if _, ok := c.FindByTarget("r1"); ok {
		t.Error("FindByTarget after Forget should miss")
	}
}

func TestMessageCacheRecordReplacesTarget(t *testing.T) {
	t.Parallel()
	c := NewMessageCache(DiscordToRevolt, 10)
	c.Record("d1", "a", "r1", "c")
	c.Record("d1", "a", "r2", "c")

	if _, ok := c.FindByTarget("r1"); ok {
		t.Error("old target should no longer resolve")
	}
	corr, ok := c.FindByTarget("r2")
	if !ok || corr.SourceMessageID != "d1" {
		t.Errorf("new target: got %+v, %v", corr, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len: got %d, want 1", c.Len())
	}
}

func TestMessageCacheDefaultSize(t *testing.T) {
	t.Parallel()
	c := NewMessageCache(DiscordToRevolt, 0)
	for i := range DefaultCacheSize + 10 {
		c.Record(fmt.Sprintf("s%d", i), "a", fmt.Sprintf("t%d", i), "c")
	}
	if c.Len() != DefaultCacheSize {
		t.Errorf("Len: got %d, want %d", c.Len(), DefaultCacheSize)
	}
	if c.Direction() != DiscordToRevolt {
		t.Errorf("Direction: got %v", c.Direction())
	}
}

func TestMessageCacheConcurrent(t *testing.T) {
	t.Parallel()
	c := NewMessageCache(RevoltToDiscord, 100)
	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				id := fmt.Sprintf("w%d-%d", w, i)
				c.Record(id, "a", "t-"+id, "c")
				c.FindBySource(id)
				c.FindByTarget("t-" + id)
				if i%3 == 0 {
					c.Forget(id)
				}
			}
		}()
	}
	wg.Wait()
	if c.Len() > 100 {
		t.Errorf("Len: got %d, want at most 100", c.Len())
	}
}
