package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"github.com/harentsoaR/medibook-api/internal/store"
)

type Verification struct {
	store       store.Store
	log         logrus.FieldLogger
	concurrency int
}

func NewVerification(st store.Store, log logrus.FieldLogger, concurrency int) *Verification {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Verification{
		store:       st,
		log:         log.WithField("component", "verification"),
		concurrency: concurrency,
	}
}

func (v *Verification) Verify(ctx context.Context, doctorID primitive.ObjectID) error {
	if err := v.store.SetDoctorVerified(ctx, doctorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrDoctorNotFound
		}
		return fmt.Errorf("verify doctor %s: %w", doctorID.Hex(), err)
	}
	v.log.WithField("doctor_id", doctorID.Hex()).Info("Doctor verified")
	return nil
}

// VerifyAll verifies every doctor still awaiting verification, at most
// concurrency at a time. It returns how many were verified; on error the
// remaining updates are cancelled.
func (v *Verification) VerifyAll(ctx context.Context) (int, error) {
	unverified := false
	pending, err := v.store.ListDoctors(ctx, store.DoctorFilter{Verified: &unverified})
	if err != nil {
		return 0, fmt.Errorf("list unverified doctors: %w", err)
	}

	var verified atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)
	for _, doctor := range pending {
		id := doctor.ID
		g.Go(func() error {
			if err := v.store.SetDoctorVerified(gctx, id); err != nil {
				return fmt.Errorf("verify doctor %s: %w", id.Hex(), err)
			}
			verified.Add(1)
			return nil
		})
	}
	err = g.Wait()

	n := int(verified.Load())
	v.log.WithFields(logrus.Fields{"pending": len(pending), "verified": n}).Info("Bulk verification finished")
	return n, err
}
