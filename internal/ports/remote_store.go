package ports

import (
	"context"

	"github.com/ldeneuve/felicare/internal/domain"
)

// RemoteStore is the remote document store holding the authoritative
// session and summary documents. Absence of a summary is the normal
// state for a first session of the day and is reported through the
// boolean, not an error.
type RemoteStore interface {
	DailySummary(ctx context.Context, owner domain.OwnerID, subject domain.SubjectID, date string) (domain.RemoteSummary, bool, error)
	MonthlySummary(ctx context.Context, owner domain.OwnerID, subject domain.SubjectID, month string) (domain.RemoteSummary, bool, error)
	ListMedicationSessions(ctx context.Context, owner domain.OwnerID, subject domain.SubjectID, date, medicationName string) ([]domain.MedicationSession, error)
	CreateMedicationSession(ctx context.Context, session domain.MedicationSession) error
	CreateFluidSession(ctx context.Context, session domain.FluidSession) error
	CreateSessionBatch(ctx context.Context, medications []domain.MedicationSession, fluids []domain.FluidSession) error
}
