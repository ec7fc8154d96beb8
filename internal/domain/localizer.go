// Package domain contains the core repair pipeline: fault localization,
// mutation space construction, fitness evaluation, search and minimization.
package domain

import (
	"errors"
	"fmt"
	"math"

	m "mend.dev/pkg/mend/internal/model"
)

// ErrLocalization is the base error for every failure of the localizer.
var ErrLocalization = errors.New("localization failed")

// ErrNoFailingTests indicates the initial run had no failing test, so there
// is nothing to repair.
var ErrNoFailingTests = fmt.Errorf("%w: no failing tests", ErrLocalization)

// ErrNoCoverage indicates no statement was executed by any test.
var ErrNoCoverage = fmt.Errorf("%w: no statement covered by any test", ErrLocalization)

// Formula computes the suspiciousness of one statement from the number of
// failing and passing tests that executed it and the suite-wide totals.
type Formula func(failed, passed, totalFailed, totalPassed int) float64

// Ochiai is the default suspiciousness formula:
// failed(s) / sqrt(totalFailed * (failed(s) + passed(s))).
func Ochiai(failed, passed, totalFailed, _ int) float64 {
	denominator := math.Sqrt(float64(totalFailed) * float64(failed+passed))
	if denominator == 0 {
		return 0
	}

	return float64(failed) / denominator
}

// Tarantula is an alternative suspiciousness formula.
func Tarantula(failed, passed, totalFailed, totalPassed int) float64 {
	if totalFailed == 0 {
		return 0
	}

	failRatio := float64(failed) / float64(totalFailed)

	passRatio := 0.0
	if totalPassed > 0 {
		passRatio = float64(passed) / float64(totalPassed)
	}

	if failRatio+passRatio == 0 {
		return 0
	}

	return failRatio / (failRatio + passRatio)
}

// FormulaByName resolves a configured formula name.
func FormulaByName(name string) (Formula, error) {
	switch name {
	case "", "ochiai":
		return Ochiai, nil
	case "tarantula":
		return Tarantula, nil
	}

	return nil, fmt.Errorf("unknown localization formula: %q", name)
}

// Localize turns per-test coverage records into a suspiciousness score per
// covered statement. Statements never executed by any test are absent from
// the result and therefore score zero.
func Localize(records []m.CoverageRecord, formula Formula) (m.SuspiciousnessScore, error) {
	if formula == nil {
		formula = Ochiai
	}

	failedBy := make(map[m.StatementID]int)
	passedBy := make(map[m.StatementID]int)
	totalFailed := 0
	totalPassed := 0

	for _, record := range records {
		if record.Passed {
			totalPassed++
		} else {
			totalFailed++
		}

		for _, id := range record.Covered {
			if record.Passed {
				passedBy[id]++
			} else {
				failedBy[id]++
			}
		}
	}

	if totalFailed == 0 {
		return nil, ErrNoFailingTests
	}

	if len(failedBy) == 0 && len(passedBy) == 0 {
		return nil, ErrNoCoverage
	}

	scores := make(m.SuspiciousnessScore, len(failedBy)+len(passedBy))

	for id := range passedBy {
		scores[id] = 0
	}

	for id, failed := range failedBy {
		scores[id] = formula(failed, passedBy[id], totalFailed, totalPassed)
	}

	return scores, nil
}
