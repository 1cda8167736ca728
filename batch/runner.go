// Package batch drives a batch of messages through validation and the
// watermark transition and produces a verifiable public report.
package batch

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"msgproc/circuit"
	"msgproc/commitment"
	"msgproc/internal/field"
	"msgproc/merkle"
	"msgproc/message"
	"msgproc/poseidon"
	"msgproc/validator"
	"msgproc/watermark"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Runner processes batches against one policy and one set of public
// parameters. A Runner holds no watermark: callers pass it in and persist the
// value returned in the Report.
type Runner struct {
	policy  watermark.Policy
	field   field.Field
	key     *commitment.Key
	hash    *poseidon.Params
	workers int
	log     *logrus.Entry
	metrics *Metrics

	validationShape [32]byte
	transitionShape [32]byte
}

// Option customises a Runner.
type Option func(*Runner)

func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

func WithLogger(l *logrus.Entry) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// NewRunner compiles the reference circuit shapes for policy.
func NewRunner(policy watermark.Policy, key *commitment.Key, hash *poseidon.Params, opts ...Option) (*Runner, error) {
	if key == nil {
		return nil, fmt.Errorf("nil commitment key")
	}
	if err := hash.Validate(); err != nil {
		return nil, fmt.Errorf("hash params: %w", err)
	}
	f := field.New(key.Ring.Modulus[0])
	if hash.Q != f.Q() {
		return nil, fmt.Errorf("hash modulus %d differs from ring modulus %d", hash.Q, f.Q())
	}
	r := &Runner{
		policy:  policy,
		field:   f,
		key:     key,
		hash:    hash,
		workers: 1,
		log:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, o := range opts {
		o(r)
	}
	r.validationShape, r.transitionShape = Shapes(f, policy)
	return r, nil
}

// Shapes returns the fingerprints every validation and transition circuit of
// the given field and policy must have.
func Shapes(f field.Field, policy watermark.Policy) (validation, transition [32]byte) {
	validation = circuit.BuildValidation(f, message.Msg{}).Sys.Fingerprint()
	transition = circuit.BuildTransition(f, policy, 0, 0, false).Sys.Fingerprint()
	return validation, transition
}

type prepared struct {
	accepted bool
	com      [32]byte
	opening  commitment.Opening
}

// Run folds msgs into initial in order. Validation circuits and commitments
// do not depend on the watermark and are built concurrently; the fold itself
// is sequential.
func (r *Runner) Run(ctx context.Context, initial uint32, msgs []message.Msg) (*Report, error) {
	runID := uuid.NewString()
	log := r.log.WithFields(logrus.Fields{"run_id": runID, "policy": r.policy.String()})
	log.WithFields(logrus.Fields{"messages": len(msgs), "initial": initial}).Info("batch started")

	prep, err := r.prepare(ctx, msgs)
	if err != nil {
		return nil, err
	}

	chain, err := chainSeed(initial, r.hash)
	if err != nil {
		return nil, fmt.Errorf("chain seed: %w", err)
	}
	report := &Report{
		RunID:           runID,
		Policy:          r.policy,
		Initial:         initial,
		ValidationShape: hex.EncodeToString(r.validationShape[:]),
		TransitionShape: hex.EncodeToString(r.transitionShape[:]),
		CreatedAt:       time.Now().UTC(),
		Statements:      make([]Statement, 0, len(msgs)),
		Openings:        make([]commitment.Opening, 0, len(msgs)),
	}
	leaves := make([][]byte, 0, len(msgs))
	wm := initial
	for i, m := range msgs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		verdict := validator.Validate(m)
		if verdict != prep[i].accepted {
			return nil, fmt.Errorf("message %d: circuit verdict disagrees with validator", i)
		}
		next := watermark.Apply(r.policy, wm, m, verdict)

		tc := circuit.BuildTransition(r.field, r.policy, wm, m.Seq, verdict)
		if err := tc.Check(); err != nil {
			return nil, fmt.Errorf("message %d: transition circuit: %w", i, err)
		}
		if tc.Sys.Fingerprint() != r.transitionShape {
			return nil, fmt.Errorf("message %d: transition circuit shape drift", i)
		}
		if tc.NextWatermark() != next {
			return nil, fmt.Errorf("message %d: transition circuit disagrees with apply", i)
		}

		st := Statement{
			Index:      i,
			Prev:       wm,
			Next:       next,
			Verdict:    verdict,
			Commitment: hex.EncodeToString(prep[i].com[:]),
		}
		if chain, err = chainStep(chain, st, prep[i].com, r.hash); err != nil {
			return nil, fmt.Errorf("message %d: chain: %w", i, err)
		}
		st.Chain = chain
		leaf, err := st.Encode()
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, leaf)
		report.Statements = append(report.Statements, st)
		report.Openings = append(report.Openings, prep[i].opening)

		log.WithFields(logrus.Fields{"index": i, "prev": wm, "next": next, "verdict": verdict}).Debug("message applied")
		r.metrics.advance(next)
		wm = next
	}

	root := merkle.Build(leaves).Root()
	report.Final = wm
	report.Root = hex.EncodeToString(root[:])
	report.ChainHead = chain
	log.WithFields(logrus.Fields{"final": wm, "root": report.Root}).Info("batch finished")
	return report, nil
}

func (r *Runner) prepare(ctx context.Context, msgs []message.Msg) ([]prepared, error) {
	out := make([]prepared, len(msgs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, m := range msgs {
		i, m := i, m
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			c := circuit.BuildValidation(r.field, m)
			if err := c.Check(); err != nil {
				return fmt.Errorf("message %d: validation circuit: %w", i, err)
			}
			if c.Sys.Fingerprint() != r.validationShape {
				return fmt.Errorf("message %d: validation circuit shape drift", i)
			}
			com, op, err := r.key.CommitMessage(m, nil)
			if err != nil {
				return fmt.Errorf("message %d: commit: %w", i, err)
			}
			out[i] = prepared{accepted: c.Accepted(), com: commitment.Digest(com), opening: op}
			r.metrics.observeBuild(time.Since(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
