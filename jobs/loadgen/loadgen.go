// Package loadgen drives synthetic limit order flow into an engine: a
// block of bids to build the book, then rounds of asks that trade into it.
package loadgen

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/sirupsen/logrus"

	"tickbook/domain/orderbook"
	"tickbook/internal/config"
)

// Placer is the write side of service.Engine.
type Placer interface {
	AddLimitOrder(side orderbook.Side, price, qty uint64) (orderbook.FillResult, error)
}

// Summary counts what a run produced.
type Summary struct {
	Orders  int
	Filled  int
	Partial int
	Rested  int
	Matched uint64
}

type Generator struct {
	cfg config.LoadConfig
	rng *rand.Rand
	log *logrus.Entry
}

// New seeds the generator from cfg.Seed, or from the clock when it is 0.
func New(cfg config.LoadConfig, logger *logrus.Logger) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		log: logger.WithField("job", "loadgen").WithField("seed", seed),
	}
}

// Run places the configured flow and stops early when ctx is done.
func (g *Generator) Run(ctx context.Context, p Placer) (Summary, error) {
	var sum Summary

	g.log.WithField("bids", g.cfg.Bids).Info("adding orders")
	for i := 0; i < g.cfg.Bids; i++ {
		if err := g.place(ctx, p, orderbook.Bid, &sum); err != nil {
			return sum, err
		}
	}

	g.log.WithFields(logrus.Fields{"rounds": g.cfg.Rounds, "per_round": g.cfg.PerRound}).Info("starting to fill")
	for r := 0; r < g.cfg.Rounds; r++ {
		for i := 0; i < g.cfg.PerRound; i++ {
			if err := g.place(ctx, p, orderbook.Ask, &sum); err != nil {
				return sum, err
			}
		}
	}

	g.log.WithFields(logrus.Fields{
		"orders":  sum.Orders,
		"filled":  sum.Filled,
		"partial": sum.Partial,
		"rested":  sum.Rested,
		"matched": sum.Matched,
	}).Info("done")
	return sum, nil
}

func (g *Generator) place(ctx context.Context, p Placer, side orderbook.Side, sum *Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	price := 1 + g.rng.Uint64N(g.cfg.MaxPrice-1)
	qty := 1 + g.rng.Uint64N(g.cfg.MaxQty)

	res, err := p.AddLimitOrder(side, price, qty)
	if err != nil {
		return err
	}

	sum.Orders++
	sum.Matched += res.Filled()
	switch res.Status {
	case orderbook.Filled:
		sum.Filled++
	case orderbook.PartiallyFilled:
		sum.Partial++
	case orderbook.Created:
		sum.Rested++
	}
	return nil
}
