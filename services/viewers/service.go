package viewers

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"tokencast/internal/database"
	"tokencast/models"
	"tokencast/services/rooms"

	"github.com/sourcegraph/conc/pool"
)

type streamStore interface {
	UpdateViewerCount(ctx context.Context, id string, count int) (bool, error)
	ListLive(ctx context.Context) ([]models.Stream, error)
}

var _ streamStore = (*database.StreamRepository)(nil)

type roomLister interface {
	ListRooms(ctx context.Context) ([]models.Room, error)
}

var _ roomLister = (*rooms.Client)(nil)

const maxSyncWorkers = 4

// Service tracks per-stream viewer counts. Clients push periodic heartbeats
// with the count they observe; a reconciliation pass against the room service
// corrects drift from clients that crashed and stopped heartbeating. Both
// paths are unconditional overwrites with no ordering guarantee between them:
// whichever write lands last wins.
type Service struct {
	streams streamStore
	rooms   roomLister
}

// NewService creates the viewer accounting service.
func NewService(streams streamStore, roomClient roomLister) *Service {
	return &Service{
		streams: streams,
		rooms:   roomClient,
	}
}

// RecordHeartbeat stores the count one connected client observes for the
// stream's room (host already excluded by the client). Last writer wins; no
// averaging across simultaneous reporters.
func (s *Service) RecordHeartbeat(ctx context.Context, streamID string, observedCount int) error {
	ok, err := s.streams.UpdateViewerCount(ctx, streamID, observedCount)
	if err != nil {
		return fmt.Errorf("record heartbeat: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: stream %s", models.ErrNotFound, streamID)
	}
	return nil
}

// SyncFromRoomService overwrites the stored count for every live stream with
// the room service's authoritative participant roster. Streams without a
// matching room are zeroed. A failed individual update is logged and skipped;
// it never aborts the batch, and nothing here retries. Returns the number of
// streams updated.
func (s *Service) SyncFromRoomService(ctx context.Context) (int, error) {
	roomList, err := s.rooms.ListRooms(ctx)
	if err != nil {
		return 0, fmt.Errorf("sync viewer counts: %w", err)
	}

	participants := make(map[string]int, len(roomList))
	for _, room := range roomList {
		participants[room.Name] = room.NumParticipants
	}

	live, err := s.streams.ListLive(ctx)
	if err != nil {
		return 0, fmt.Errorf("sync viewer counts: %w", err)
	}

	var updated atomic.Int64
	p := pool.New().WithMaxGoroutines(maxSyncWorkers)
	for _, stream := range live {
		p.Go(func() {
			// The roster includes the host; viewers are everyone else.
			count := participants[stream.ID] - 1
			if count < 0 {
				count = 0
			}
			ok, err := s.streams.UpdateViewerCount(ctx, stream.ID, count)
			if err != nil {
				slog.Warn("[viewers] sync update failed", "stream_id", stream.ID, "error", err)
				return
			}
			if !ok {
				slog.Warn("[viewers] stream vanished during sync", "stream_id", stream.ID)
				return
			}
			updated.Add(1)
		})
	}
	p.Wait()

	return int(updated.Load()), nil
}
