package jobs_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"toolshare-backend/internal/config"
	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/jobs"
	"toolshare-backend/internal/repository"
	"toolshare-backend/internal/repository/csvfile"
	"toolshare-backend/internal/repository/memory"
	"toolshare-backend/internal/storage"
)

var jobNow = time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC)

type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendBookingRequestNotification(ctx context.Context, owner, renter *domain.User, tool *domain.Tool, booking *domain.Booking) error {
	return m.Called(ctx, owner, renter, tool, booking).Error(0)
}

func (m *MockEmailService) SendBookingStatusNotification(ctx context.Context, to *domain.User, actor string, tool *domain.Tool, booking *domain.Booking) error {
	return m.Called(ctx, to, actor, tool, booking).Error(0)
}

func (m *MockEmailService) SendReturnReminder(ctx context.Context, renter *domain.User, tool *domain.Tool, booking *domain.Booking) error {
	return m.Called(ctx, renter, tool, booking).Error(0)
}

func (m *MockEmailService) SendSwapProposalNotification(ctx context.Context, receiver, proposer *domain.User, swap *domain.Swap) error {
	return m.Called(ctx, receiver, proposer, swap).Error(0)
}

func (m *MockEmailService) SendSwapResponseNotification(ctx context.Context, proposer *domain.User, swap *domain.Swap) error {
	return m.Called(ctx, proposer, swap).Error(0)
}

type fakeHealth struct {
	calls int
	err   error
	panic bool
}

func (f *fakeHealth) CheckStore(ctx context.Context) error {
	f.calls++
	if f.panic {
		panic("health exploded")
	}
	return f.err
}

type jobFixture struct {
	store  *memory.Store
	email  *MockEmailService
	blobs  *storage.FileStorage
	runner *jobs.JobRunner

	drill, saw, ladder int64
	dueBooking         int64
}

func newJobFixture(t *testing.T) *jobFixture {
	t.Helper()
	store := memory.NewStore()
	blobs, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	f := &jobFixture{store: store, email: new(MockEmailService), blobs: blobs}
	f.runner = jobs.NewJobRunner(store, &jobs.Services{Email: f.email}, blobs, &config.Config{}).
		WithClock(func() time.Time { return jobNow })

	err = store.RunInTx(context.Background(), func(ctx context.Context, r repository.Repos) error {
		for _, name := range []string{"alice", "bob"} {
			if err := r.Users().Create(ctx, &domain.User{Username: name, Name: name, Email: name + "@example.com"}); err != nil {
				return err
			}
		}
		tool := func(title string, available bool) (int64, error) {
			listing := &domain.Tool{
				OwnerUsername: "alice", Title: title, ToolType: "Misc", Condition: domain.ToolConditionGood,
				DailyRate: decimal.NewFromInt(10), Available: available,
			}
			err := r.Tools().Create(ctx, listing)
			return listing.ID, err
		}
		var err error
		if f.drill, err = tool("Drill", true); err != nil {
			return err
		}
		if f.saw, err = tool("Saw", false); err != nil {
			return err
		}
		if f.ladder, err = tool("Ladder", true); err != nil {
			return err
		}
		book := func(toolID int64, start, end string, status domain.BookingStatus) (int64, error) {
			b := &domain.Booking{
				ToolID: toolID, OwnerUsername: "alice", RenterUsername: "bob",
				StartDate: start, EndDate: end, TotalCost: decimal.NewFromInt(10), Status: status,
			}
			err := r.Bookings().Create(ctx, b)
			return b.ID, err
		}
		if f.dueBooking, err = book(f.drill, "2024-06-01", "2024-06-05", domain.BookingStatusApproved); err != nil {
			return err
		}
		if _, err = book(f.drill, "2024-06-10", "2024-06-12", domain.BookingStatusApproved); err != nil {
			return err
		}
		_, err = book(f.ladder, "2024-06-01", "2024-06-03", domain.BookingStatusPending)
		return err
	})
	require.NoError(t, err)
	return f
}

func TestSendReturnReminders(t *testing.T) {
	f := newJobFixture(t)
	f.email.On("SendReturnReminder", mock.Anything,
		mock.MatchedBy(func(u *domain.User) bool { return u.Username == "bob" }),
		mock.MatchedBy(func(tool *domain.Tool) bool { return tool.ID == f.drill }),
		mock.MatchedBy(func(b *domain.Booking) bool { return b.ID == f.dueBooking }),
	).Return(nil).Once()

	require.NoError(t, f.runner.SendReturnReminders())
	f.email.AssertExpectations(t)
	f.email.AssertNumberOfCalls(t, "SendReturnReminder", 1)
}

func TestSendReturnReminders_EmailFailureIsNotFatal(t *testing.T) {
	f := newJobFixture(t)
	f.email.On("SendReturnReminder", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("smtp down"))

	assert.NoError(t, f.runner.SendReturnReminders())
}

func TestFindAvailabilityDrift(t *testing.T) {
	f := newJobFixture(t)

	drift, err := f.runner.FindAvailabilityDrift(context.Background(), jobNow)
	require.NoError(t, err)
	require.Len(t, drift, 2)
	// drill is booked today but flagged available, saw is free but flagged off
	assert.Equal(t, jobs.AvailabilityDrift{ToolID: f.drill, Owner: "alice", Flag: true, Derived: false}, drift[0])
	assert.Equal(t, jobs.AvailabilityDrift{ToolID: f.saw, Owner: "alice", Flag: false, Derived: true}, drift[1])

	require.NoError(t, f.runner.ReportAvailabilityDrift())
}

func TestExportSnapshot(t *testing.T) {
	f := newJobFixture(t)
	require.NoError(t, f.runner.ExportSnapshot())

	ctx := context.Background()
	for _, name := range []string{"users.csv", "tools.csv", "bookings.csv", "swaps.csv"} {
		ok, _, err := f.blobs.Exists(ctx, "exports/20240605T120000Z/"+name)
		require.NoError(t, err)
		assert.True(t, ok, name)
	}

	rc, err := f.blobs.Get(ctx, "exports/20240605T120000Z/tools.csv")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Ladder")
}

func TestExportSnapshot_OmitsPasswordHashes(t *testing.T) {
	f := newJobFixture(t)
	require.NoError(t, f.store.RunInTx(context.Background(), func(ctx context.Context, r repository.Repos) error {
		return r.Users().Create(ctx, &domain.User{Username: "carol", Name: "Carol", Email: "carol@example.com", PasswordHash: "$2a$10$carolsecret"})
	}))
	require.NoError(t, f.runner.ExportSnapshot())

	rc, err := f.blobs.Get(context.Background(), "exports/20240605T120000Z/users.csv")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Contains(t, string(data), "carol@example.com")
	assert.NotContains(t, string(data), "carolsecret")

	// the live store keeps the hash
	require.NoError(t, f.store.View(context.Background(), func(ctx context.Context, r repository.Repos) error {
		u, err := r.Users().GetByUsername(ctx, "carol")
		require.NoError(t, err)
		assert.Equal(t, "$2a$10$carolsecret", u.PasswordHash)
		return nil
	}))
}

func TestExportSnapshot_NoStorage(t *testing.T) {
	runner := jobs.NewJobRunner(memory.NewStore(), &jobs.Services{}, nil, &config.Config{})
	assert.Error(t, runner.ExportSnapshot())
}

func TestCheckStoreHealth(t *testing.T) {
	f := newJobFixture(t)
	require.NoError(t, f.runner.CheckStoreHealth())

	health := &fakeHealth{err: errors.New("down")}
	f.runner.WithHealth(health)
	assert.EqualError(t, f.runner.CheckStoreHealth(), "down")
	assert.Equal(t, 1, health.calls)

	health.panic = true
	err := f.runner.CheckStoreHealth()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestRun(t *testing.T) {
	f := newJobFixture(t)
	f.email.On("SendReturnReminder", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	assert.Equal(t, []string{
		jobs.JobCheckStoreHealth, jobs.JobExportSnapshot, jobs.JobReportAvailabilityDrift, jobs.JobSendReturnReminders,
	}, f.runner.Names())
	assert.NoError(t, f.runner.Run(jobs.JobAll))
	assert.Error(t, f.runner.Run("mark-overdue-rentals"))
}

func TestJobsSeeCommitsFromAnotherProcess(t *testing.T) {
	dir := t.TempDir()
	server, err := csvfile.Open(dir)
	require.NoError(t, err)
	cron, err := csvfile.Open(dir)
	require.NoError(t, err)

	email := new(MockEmailService)
	runner := jobs.NewJobRunner(cron, &jobs.Services{Email: email}, nil, &config.Config{}).
		WithClock(func() time.Time { return jobNow })

	var toolID int64
	err = server.RunInTx(context.Background(), func(ctx context.Context, r repository.Repos) error {
		for _, name := range []string{"alice", "bob"} {
			if err := r.Users().Create(ctx, &domain.User{Username: name, Name: name, Email: name + "@example.com"}); err != nil {
				return err
			}
		}
		drill := &domain.Tool{
			OwnerUsername: "alice", Title: "Drill", ToolType: "Drill", Condition: domain.ToolConditionGood,
			DailyRate: decimal.NewFromInt(10), Available: true,
		}
		if err := r.Tools().Create(ctx, drill); err != nil {
			return err
		}
		toolID = drill.ID
		return r.Bookings().Create(ctx, &domain.Booking{
			ToolID: drill.ID, OwnerUsername: "alice", RenterUsername: "bob",
			StartDate: "2024-06-02", EndDate: "2024-06-05", TotalCost: decimal.NewFromInt(40),
			Status: domain.BookingStatusApproved,
		})
	})
	require.NoError(t, err)

	email.On("SendReturnReminder", mock.Anything,
		mock.MatchedBy(func(u *domain.User) bool { return u.Username == "bob" }),
		mock.MatchedBy(func(tool *domain.Tool) bool { return tool.ID == toolID }),
		mock.Anything,
	).Return(nil).Once()
	require.NoError(t, runner.Run(jobs.JobSendReturnReminders))
	email.AssertExpectations(t)

	drift, err := runner.FindAvailabilityDrift(context.Background(), jobNow)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, toolID, drift[0].ToolID)
	assert.True(t, drift[0].Flag)
	assert.False(t, drift[0].Derived)
}
