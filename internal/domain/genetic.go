package domain

import (
	"context"
	"log/slog"
	"math/rand"

	"golang.org/x/sync/errgroup"

	m "mend.dev/pkg/mend/internal/model"
)

// GenerationStats is reported to the observer after every generation.
type GenerationStats struct {
	Generation     int
	Budget         int
	BestFitness    float64
	PopulationSize int
	Evaluations    uint64
}

// GeneticConfig tunes the genetic search strategy.
type GeneticConfig struct {
	// PopulationSize is the fixed generation size N.
	PopulationSize int
	// Generations is the generation budget G.
	Generations int
	// CrossoverRate is the probability of recombining a parent pair.
	CrossoverRate float64
	// MutationRate is the probability of mutating an offspring.
	MutationRate float64
	// MaxInitialOperators bounds the length of sampled initial candidates.
	MaxInitialOperators int
	// TournamentSize is the number of contestants per parent selection.
	TournamentSize int
	// Workers bounds the parallel fitness evaluations per generation.
	Workers int
	// Seed makes the random source reproducible.
	Seed int64
	// Observer, when set, receives the stats of every finished generation.
	Observer func(GenerationStats)
}

func (c GeneticConfig) withDefaults() GeneticConfig {
	if c.PopulationSize <= 0 {
		c.PopulationSize = 40
	}

	if c.Generations <= 0 {
		c.Generations = 10
	}

	if c.CrossoverRate <= 0 {
		c.CrossoverRate = 0.7
	}

	if c.MutationRate <= 0 {
		c.MutationRate = 0.6
	}

	if c.MaxInitialOperators <= 0 {
		c.MaxInitialOperators = 3
	}

	if c.TournamentSize <= 0 {
		c.TournamentSize = 3
	}

	if c.Workers <= 0 {
		c.Workers = 1
	}

	return c
}

type scoredCandidate struct {
	candidate m.Candidate
	result    m.FitnessResult
	evaluated bool
}

// GeneticStrategy is the population-based search: sample, evaluate, select,
// recombine, mutate, repeat. The best candidate ever seen is carried outside
// the population and re-injected every generation (elitism).
type GeneticStrategy struct {
	cfg   GeneticConfig
	space *Space
	eval  Evaluator
	rng   *rand.Rand

	generation int
	population []scoredCandidate
	best       *scoredCandidate
	successes  []m.Candidate
	done       bool
}

// NewGeneticStrategy constructs a genetic strategy over the given space.
func NewGeneticStrategy(space *Space, eval Evaluator, cfg GeneticConfig) *GeneticStrategy {
	cfg = cfg.withDefaults()

	return &GeneticStrategy{
		cfg:   cfg,
		space: space,
		eval:  eval,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Done implements Strategy.
func (g *GeneticStrategy) Done() bool {
	return g.done
}

// Best implements Strategy.
func (g *GeneticStrategy) Best() []m.Candidate {
	return g.successes
}

// BestFitness returns the fitness of the best candidate seen so far; 1 when
// nothing has been evaluated yet.
func (g *GeneticStrategy) BestFitness() float64 {
	if g.best == nil {
		return 1
	}

	return g.best.result.Fitness
}

// Step runs one generation: evaluate everything, harvest repairs, then breed
// the next population.
func (g *GeneticStrategy) Step(ctx context.Context) error {
	if g.done {
		return nil
	}

	if g.population == nil {
		g.population = g.initialPopulation()
	}

	if err := g.evaluatePopulation(ctx); err != nil {
		return err
	}

	g.generation++

	g.harvestSuccesses()
	g.updateBest()
	g.notifyObserver()

	if len(g.successes) > 0 || g.generation >= g.cfg.Generations {
		g.done = true
		return nil
	}

	g.population = g.breed()

	return nil
}

// initialPopulation samples N short candidates, drawing operators with
// probability proportional to their target's suspiciousness.
func (g *GeneticStrategy) initialPopulation() []scoredCandidate {
	population := make([]scoredCandidate, g.cfg.PopulationSize)

	for i := range population {
		length := 1 + g.rng.Intn(g.cfg.MaxInitialOperators)

		ops := make([]m.Operator, 0, length)
		for j := 0; j < length; j++ {
			ops = append(ops, g.space.Sample(g.rng))
		}

		population[i] = scoredCandidate{candidate: m.NewCandidate(ops...)}
	}

	return population
}

// evaluatePopulation runs the fitness evaluator over the whole generation in
// parallel. Each worker writes to its own slot, so completion order cannot
// affect the resulting population, and Wait is the generation barrier.
func (g *GeneticStrategy) evaluatePopulation(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(g.cfg.Workers)

	for i := range g.population {
		if g.population[i].evaluated {
			continue
		}

		i := i
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			g.population[i].result = g.eval.Evaluate(groupCtx, g.population[i].candidate)
			g.population[i].evaluated = true

			return nil
		})
	}

	return group.Wait()
}

// harvestSuccesses collects every zero-fitness candidate of the current
// generation, deduplicated by signature in population order.
func (g *GeneticStrategy) harvestSuccesses() {
	seen := make(map[string]bool)

	for _, scored := range g.population {
		if !scored.result.Repairs() {
			continue
		}

		signature := scored.candidate.Signature()
		if seen[signature] {
			continue
		}

		seen[signature] = true

		g.successes = append(g.successes, scored.candidate.Clone())
	}

	if len(g.successes) > 0 {
		slog.Info("search found repairs", "generation", g.generation, "repairs", len(g.successes))
	}
}

// updateBest keeps the globally best candidate; its fitness is monotonically
// non-increasing across generations.
func (g *GeneticStrategy) updateBest() {
	for i := range g.population {
		if g.best == nil || g.population[i].result.Fitness < g.best.result.Fitness {
			best := g.population[i]
			best.candidate = best.candidate.Clone()
			g.best = &best
		}
	}
}

func (g *GeneticStrategy) notifyObserver() {
	if g.cfg.Observer == nil {
		return
	}

	g.cfg.Observer(GenerationStats{
		Generation:     g.generation,
		Budget:         g.cfg.Generations,
		BestFitness:    g.BestFitness(),
		PopulationSize: len(g.population),
		Evaluations:    g.eval.Evaluations(),
	})
}

// breed builds the next generation: N-1 offspring from selected parents plus
// the elitist carry-over of the global best.
func (g *GeneticStrategy) breed() []scoredCandidate {
	next := make([]scoredCandidate, 0, g.cfg.PopulationSize)

	for len(next) < g.cfg.PopulationSize-1 {
		parentA := g.tournament()
		parentB := g.tournament()

		var child m.Candidate
		if g.rng.Float64() < g.cfg.CrossoverRate {
			child = crossover(parentA, parentB)
		} else {
			child = fitter(parentA, parentB).candidate.Clone()
		}

		if g.rng.Float64() < g.cfg.MutationRate {
			child = g.mutate(child)
		}

		next = append(next, scoredCandidate{candidate: child})
	}

	elite := *g.best
	next = append(next, elite)

	return next
}

// tournament selects the lowest-fitness contestant among TournamentSize
// random picks.
func (g *GeneticStrategy) tournament() scoredCandidate {
	best := g.population[g.rng.Intn(len(g.population))]

	for i := 0; i < g.cfg.TournamentSize-1; i++ {
		contestant := g.population[g.rng.Intn(len(g.population))]
		if contestant.result.Fitness < best.result.Fitness {
			best = contestant
		}
	}

	return best
}

// crossover unions the parents' operators. When both parents edit the same
// target, the fitter parent's operator wins; ties favor the first parent.
func crossover(parentA, parentB scoredCandidate) m.Candidate {
	strong := fitter(parentA, parentB)

	weak := parentA
	if strong.candidate.Signature() == parentA.candidate.Signature() {
		weak = parentB
	}

	taken := make(map[m.StatementID]bool)

	ops := make([]m.Operator, 0, strong.candidate.Len()+weak.candidate.Len())

	for _, op := range strong.candidate.Operators {
		ops = append(ops, op)
		taken[op.Target] = true
	}

	for _, op := range weak.candidate.Operators {
		if !taken[op.Target] {
			ops = append(ops, op)
		}
	}

	return m.NewCandidate(ops...)
}

func fitter(a, b scoredCandidate) scoredCandidate {
	if b.result.Fitness < a.result.Fitness {
		return b
	}

	return a
}

// mutate applies one of three edits with equal probability: add a sampled
// operator, drop a random one, or swap a random operator's donor.
func (g *GeneticStrategy) mutate(candidate m.Candidate) m.Candidate {
	switch g.rng.Intn(3) {
	case 0:
		return candidate.Append(g.space.Sample(g.rng))
	case 1:
		if candidate.Len() == 0 {
			return candidate.Append(g.space.Sample(g.rng))
		}

		ops := make([]m.Operator, 0, candidate.Len()-1)
		drop := g.rng.Intn(candidate.Len())

		for i, op := range candidate.Operators {
			if i != drop {
				ops = append(ops, op)
			}
		}

		return m.NewCandidate(ops...)
	default:
		if candidate.Len() == 0 {
			return candidate.Append(g.space.Sample(g.rng))
		}

		index := g.rng.Intn(candidate.Len())

		swapped, ok := g.space.SwapDonor(g.rng, candidate.Operators[index])
		if !ok {
			return candidate.Append(g.space.Sample(g.rng))
		}

		ops := make([]m.Operator, candidate.Len())
		copy(ops, candidate.Operators)
		ops[index] = swapped

		return m.NewCandidate(ops...)
	}
}
