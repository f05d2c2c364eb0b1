package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ExampleHub_Emit counts failed fetches with a SinkFunc.
func ExampleHub_Emit() {
	failed := 0
	hub := NewHub(Config{FlushEvery: 1, FlushInterval: time.Second}, SinkFunc(func(_ context.Context, batch []Event) error {
		for _, evt := range batch {
			if evt.Stage == StageFetchDone && evt.Failed() {
				failed++
			}
		}
		return nil
	}))

	runID := UUIDToBytes(uuid.MustParse("00000000-0000-0000-0000-000000000001"))
	for _, code := range []int{200, 404, 500} {
		hub.Emit(Event{
			RunID:       runID,
			TS:          time.Unix(0, 0),
			Stage:       StageFetchDone,
			Site:        "example.com",
			URL:         "https://example.com/",
			StatusClass: ClassifyStatus(code),
		})
	}
	if err := hub.Close(context.Background()); err != nil {
		panic(err)
	}

	fmt.Printf("failed fetches: %d\n", failed)
	// Output:
	// failed fetches: 2
}
