package syncworker

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"biosync/internal/sqlcgen"
)

type fakeScheduleQueries struct {
	active    bool
	activeErr error
	inserted  []string
}

func (f *fakeScheduleQueries) HasActiveSyncRun(ctx context.Context) (bool, error) {
	return f.active, f.activeErr
}

func (f *fakeScheduleQueries) InsertSyncRun(ctx context.Context, trigger string) (sqlcgen.SyncRun, error) {
	f.inserted = append(f.inserted, trigger)
	return sqlcgen.SyncRun{ID: "run-s", Status: "queued", Trigger: trigger}, nil
}

func TestScheduler_TickEnqueuesScheduledRun(t *testing.T) {
	q := &fakeScheduleQueries{}
	s := NewScheduler(zerolog.Nop(), q, 15*time.Minute)

	queued, err := s.tick(context.Background())
	if err != nil || !queued {
		t.Fatalf("expected run queued, got queued=%v err=%v", queued, err)
	}
	if len(q.inserted) != 1 || q.inserted[0] != TriggerSchedule {
		t.Fatalf("expected one schedule run, got %v", q.inserted)
	}
}

func TestScheduler_TickSkipsWhileRunActive(t *testing.T) {
	q := &fakeScheduleQueries{active: true}
	s := NewScheduler(zerolog.Nop(), q, 15*time.Minute)

	queued, err := s.tick(context.Background())
	if err != nil || queued {
		t.Fatalf("expected skip, got queued=%v err=%v", queued, err)
	}
	if len(q.inserted) != 0 {
		t.Fatalf("expected no insert, got %v", q.inserted)
	}
}

func TestScheduler_TickReturnsCheckError(t *testing.T) {
	q := &fakeScheduleQueries{activeErr: errors.New("db down")}
	s := NewScheduler(zerolog.Nop(), q, time.Minute)

	if _, err := s.tick(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestScheduler_RunDisabledReturnsImmediately(t *testing.T) {
	s := NewScheduler(zerolog.Nop(), &fakeScheduleQueries{}, 0)
	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected Run to return when interval is 0")
	}
}

func TestTCPProbe_DialsDevice(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	dev := Device{DeviceID: "D1", IPAddress: "127.0.0.1", Port: addr.Port}
	if err := (TCPProbe{}).Pull(context.Background(), dev); err != nil {
		t.Fatalf("expected successful probe, got %v", err)
	}

	ln.Close()
	if err := (TCPProbe{}).Pull(context.Background(), dev); err == nil {
		t.Fatalf("expected probe of closed port to fail")
	}
}
