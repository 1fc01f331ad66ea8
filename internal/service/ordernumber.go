package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noirlabs/noir/internal/domain"
	"github.com/noirlabs/noir/internal/repository"
)

// orderNumberTag is the fixed leading segment of every order number.
const orderNumberTag = "ORD"

// OrderNumberGenerator produces date-scoped, per-tenant sequential order
// numbers formatted ORD-YYYYMMDD-NNNN. The sequence resets each calendar day.
//
// Generation reads the highest existing number for today's prefix and
// increments it. Two concurrent creations can read the same latest number;
// the (tenant_id, order_number) unique index rejects the loser and the
// caller retries. This is collision-detect-and-retry, not a lock.
type OrderNumberGenerator struct {
	store repository.OrderStore
	now   func() time.Time
}

// NewOrderNumberGenerator creates a generator reading from the given store.
func NewOrderNumberGenerator(store repository.OrderStore) *OrderNumberGenerator {
	return &OrderNumberGenerator{store: store, now: time.Now}
}

// GenerateNext returns the next order number for the tenant today.
func (g *OrderNumberGenerator) GenerateNext(ctx context.Context, tenantID string) (string, error) {
	const op = "ordernumber.generate"

	if tenantID == "" {
		return "", domain.ErrTenantRequired.WithOp(op)
	}

	prefix := fmt.Sprintf("%s-%s-", orderNumberTag, g.now().UTC().Format("20060102"))
	latest, err := g.store.LatestOrderNumber(ctx, tenantID, prefix)
	if err != nil {
		return "", err
	}

	next := 1
	if latest != "" {
		seq, ok := parseSequence(latest, prefix)
		if !ok {
			return "", domain.Errorf(domain.EINTERNAL, op,
				"malformed order number in store: %s", latest)
		}
		next = seq + 1
	}

	// Four digits zero-padded; busier days grow a fifth digit and onward.
	return fmt.Sprintf("%s%04d", prefix, next), nil
}

// parseSequence extracts the numeric suffix from an order number with the
// given prefix.
func parseSequence(orderNumber, prefix string) (int, bool) {
	suffix, found := strings.CutPrefix(orderNumber, prefix)
	if !found || suffix == "" {
		return 0, false
	}
	seq, err := strconv.Atoi(suffix)
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}
