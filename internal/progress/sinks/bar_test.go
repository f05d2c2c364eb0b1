package sinks

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/sitecrawler/internal/progress"
)

// TestBarSinkCountsFetches advances only on fetch events and reports failures.
func TestBarSinkCountsFetches(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	bar := NewBarSink(&out, nil)
	bar.SetTotal(4)

	runID := progress.UUIDToBytes(uuid.New())
	batch := []progress.Event{
		{RunID: runID, TS: time.Now(), Stage: progress.StageRunStart},
		fetchEvent(runID, progress.Status2xx, ""),
		fetchEvent(runID, progress.Status4xx, ""),
	}
	require.NoError(t, bar.Consume(context.Background(), batch))
	require.NoError(t, bar.Close(context.Background()))

	text := out.String()
	require.Contains(t, text, "2/4")
	require.Contains(t, text, "(1 failed)")
	require.Contains(t, text, "["+strings.Repeat("=", 15)+strings.Repeat(" ", 15)+"]")
	require.True(t, strings.HasSuffix(text, "\n"))
}

// TestBarSinkSilentWithoutTotal draws nothing before the total is known.
func TestBarSinkSilentWithoutTotal(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	bar := NewBarSink(&out, nil)
	runID := progress.UUIDToBytes(uuid.New())
	require.NoError(t, bar.Consume(context.Background(), []progress.Event{fetchEvent(runID, progress.Status2xx, "")}))
	require.NoError(t, bar.Close(context.Background()))
	require.Empty(t, out.String())
}

func fetchEvent(runID [16]byte, class progress.StatusClass, note string) progress.Event {
	return progress.Event{
		RunID:       runID,
		TS:          time.Now(),
		Stage:       progress.StageFetchDone,
		Site:        "example.com",
		URL:         "https://example.com/page",
		StatusClass: class,
		Dur:         50 * time.Millisecond,
		Note:        note,
	}
}
