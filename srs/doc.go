// Package srs implements the FSRS memory model used to schedule question
// reviews: per-card stability/difficulty state, the power-law forgetting
// curve, and the pure review transform that advances a card through the
// New → Learning → Review ⇄ Relearning lifecycle.
//
// All tunables live in an explicit Params value passed to constructors; the
// package keeps no global state, so callers can run schedulers with
// different parameter sets side by side.
//
//	sched, err := srs.NewScheduler(srs.DefaultParams())
//	if err != nil {
//	    return err
//	}
//	card, err := sched.Schedule(srs.NewCard(now), srs.RatingGood, now)
package srs
