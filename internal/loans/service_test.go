package loans

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/joelsmith11/locallibrary/internal/database/loans"
	"github.com/joelsmith11/locallibrary/internal/entities"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func setupService(t *testing.T, today time.Time) (*Service, *loans.Repository, *entities.BookInstance) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "loans.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.User{}, &entities.Book{}, &entities.BookInstance{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	borrower := &entities.User{Username: "alice", Email: "alice@example.com", Role: entities.UserRoleBorrower}
	require.NoError(t, db.Create(borrower).Error)
	book := &entities.Book{Title: "Dune"}
	require.NoError(t, db.Create(book).Error)

	due := date(2024, time.January, 1)
	instance := &entities.BookInstance{
		BookID:     &book.ID,
		BorrowerID: &borrower.ID,
		Status:     entities.LoanStatusOnLoan,
		DueBack:    &due,
	}
	repo := loans.NewRepository(db)
	require.NoError(t, repo.CreateInstance(instance))

	return NewService(repo, fixedClock(today)), repo, instance
}

func currentDueBack(t *testing.T, repo *loans.Repository, id uuid.UUID) time.Time {
	t.Helper()
	got, err := repo.GetInstance(id)
	require.NoError(t, err)
	require.NotNil(t, got.DueBack)
	return got.DueBack.UTC()
}

func TestService_Renew_WithinWindow(t *testing.T) {
	svc, repo, instance := setupService(t, time.Date(2024, time.January, 5, 9, 0, 0, 0, time.UTC))

	renewal, err := svc.Renew(context.Background(), instance.ID, date(2024, time.January, 10))
	require.NoError(t, err)

	assert.Equal(t, date(2024, time.January, 10), *renewal.Instance.DueBack)
	require.NotNil(t, renewal.PreviousDueBack)
	assert.Equal(t, date(2024, time.January, 1), renewal.PreviousDueBack.UTC())
	assert.Equal(t, date(2024, time.January, 10), currentDueBack(t, repo, instance.ID))

	got, err := repo.GetInstance(instance.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.LoanStatusOnLoan, got.Status)
}

func TestService_Renew_Today(t *testing.T) {
	svc, repo, instance := setupService(t, date(2024, time.January, 5))

	_, err := svc.Renew(context.Background(), instance.ID, date(2024, time.January, 5))
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.January, 5), currentDueBack(t, repo, instance.ID))
}

func TestService_Renew_Rejected(t *testing.T) {
	tests := []struct {
		name      string
		candidate time.Time
		wantErr   error
		wantCode  string
	}{
		{"past date", date(2024, time.January, 4), ErrPastDate, CodePastDate},
		{"more than four weeks", date(2024, time.February, 3), ErrTooFarAhead, CodeTooFarAhead},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, instance := setupService(t, date(2024, time.January, 5))

			_, err := svc.Renew(context.Background(), instance.ID, tt.candidate)

			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCode, validationErr.Code())
			assert.Equal(t, date(2024, time.January, 1), currentDueBack(t, repo, instance.ID))
		})
	}
}

func TestService_Renew_UnknownInstance(t *testing.T) {
	svc, _, _ := setupService(t, date(2024, time.January, 5))

	_, err := svc.Renew(context.Background(), uuid.New(), date(2024, time.January, 10))
	assert.ErrorIs(t, err, ErrInstanceNotFound)
}

func TestService_Renew_CancelledContext(t *testing.T) {
	svc, repo, instance := setupService(t, date(2024, time.January, 5))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Renew(ctx, instance.ID, date(2024, time.January, 10))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, date(2024, time.January, 1), currentDueBack(t, repo, instance.ID))
}

func TestService_ProposedDate(t *testing.T) {
	svc, _, _ := setupService(t, time.Date(2024, time.January, 5, 13, 0, 0, 0, time.UTC))

	assert.Equal(t, date(2024, time.January, 5), svc.Today())
	assert.Equal(t, date(2024, time.January, 26), svc.ProposedDate())
}
