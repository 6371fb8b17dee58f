package loadgen

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/okian/rslist/pkg/logger"
)

type opKind int

const (
	opVote opKind = iota
	opBid
)

type op struct {
	kind   opKind
	event  uint
	user   uint
	num    int
	amount int
	rank   int
}

const maxVotesPerRequest = 3

// plan builds a shuffled, reproducible mix of votes and bids.
func plan(cfg *Config, users, events []uint) []op {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	ops := make([]op, 0, cfg.Votes+cfg.Bids)
	for i := 0; i < cfg.Votes; i++ {
		ops = append(ops, op{
			kind:  opVote,
			event: events[rng.IntN(len(events))],
			user:  users[rng.IntN(len(users))],
			num:   1 + rng.IntN(maxVotesPerRequest),
		})
	}
	for i := 0; i < cfg.Bids; i++ {
		ops = append(ops, op{
			kind:   opBid,
			event:  events[rng.IntN(len(events))],
			amount: rng.IntN(cfg.MaxAmount + 1),
			rank:   1 + rng.IntN(cfg.Ranks),
		})
	}
	rng.Shuffle(len(ops), func(i, j int) { ops[i], ops[j] = ops[j], ops[i] })
	return ops
}

// tally collects outcomes from concurrent requests.
type tally struct {
	votesAccepted atomic.Int64
	votesRejected atomic.Int64
	bidsAccepted  atomic.Int64
	bidsRejected  atomic.Int64
	failed        atomic.Int64

	mu         sync.Mutex
	votesByEvt map[uint]int
}

func newTally() *tally {
	return &tally{votesByEvt: make(map[uint]int)}
}

func (t *tally) acceptVote(event uint, num int) {
	t.votesAccepted.Add(1)
	t.mu.Lock()
	t.votesByEvt[event] += num
	t.mu.Unlock()
}

func (t *tally) votesFor(event uint) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.votesByEvt[event]
}

// fire runs ops with at most cfg.Workers requests in flight. Transport
// failures are counted, not returned; only ctx cancellation stops the run.
func fire(ctx context.Context, c *client, cfg *Config, ops []op, t *tally) error {
	log := logger.Get()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for _, o := range ops {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			var (
				path string
				body any
			)
			switch o.kind {
			case opVote:
				path = fmt.Sprintf("/rs/vote/%d", o.event)
				body = map[string]any{"userId": o.user, "voteNum": o.num}
			case opBid:
				path = fmt.Sprintf("/rs/buy/%d", o.event)
				body = map[string]any{"amount": o.amount, "rank": o.rank}
			}

			status, apiErr, err := c.do(gctx, http.MethodPost, path, body, nil)
			switch {
			case err != nil:
				t.failed.Add(1)
				if cfg.Verbose {
					log.Warn(gctx, "request failed", logger.String("path", path), logger.Error(err))
				}
			case status == http.StatusOK && o.kind == opVote:
				t.acceptVote(o.event, o.num)
			case status == http.StatusOK:
				t.bidsAccepted.Add(1)
			case status == http.StatusBadRequest && o.kind == opVote:
				t.votesRejected.Add(1)
			case status == http.StatusBadRequest:
				t.bidsRejected.Add(1)
			default:
				t.failed.Add(1)
				if cfg.Verbose {
					log.Warn(gctx, "request rejected", logger.String("path", path),
						logger.Int("status", status), logger.String("error", apiErr.Error))
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
