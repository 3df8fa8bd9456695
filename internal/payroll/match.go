// Package payroll provides the pure derivation functions over worker and
// payment collections: due summary, cash-flow projection and pay-run due
// lists. No I/O, no mutation.
package payroll

import (
	"strings"

	"github.com/mka6199/wagebook/internal/models"
)

// Matches reports whether a payment belongs to a worker. The exact id match
// is tried first, then a trimmed case-insensitive cross-comparison of names
// and ids. The fallback tolerates historical records where the worker
// reference was denormalized inconsistently (a name stored in the id field
// or vice versa); all derivation functions share this one matcher so they
// classify a payment identically.
func Matches(p models.Payment, w models.Worker) bool {
	if p.WorkerID != "" && p.WorkerID == w.ID {
		return true
	}

	pid := norm(p.WorkerID)
	pname := norm(p.WorkerName)
	wid := norm(w.ID)
	wname := norm(w.Name)

	if pid != "" && (pid == wid || pid == wname) {
		return true
	}
	if pname != "" && (pname == wid || pname == wname) {
		return true
	}
	return false
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
