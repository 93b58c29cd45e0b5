package api

import (
	"errors"
	"fmt"

	"github.com/christofluyten/rinlog/internal/config"
	"github.com/christofluyten/rinlog/internal/model"
	"github.com/christofluyten/rinlog/internal/scenario"
)

func validateSolveRequest(req *model.SolveRequest) error {
	if (req.ScenarioID == "") == (req.Scenario == nil) {
		return errors.New("exactly one of scenarioId and scenario is required")
	}
	if err := validateSolverSettings(config.SolverConfig{
		TimeBudgetMs: req.TimeBudgetMs, MaxIterations: req.MaxIterations,
		InitTemp: req.InitTemp, Cooling: req.Cooling, OperatorWeights: req.OperatorWeights,
	}); err != nil {
		return err
	}
	if req.Scenario != nil {
		return scenario.Validate(req.Scenario)
	}
	return nil
}

func validateSolverSettings(c config.SolverConfig) error {
	if c.TimeBudgetMs < 0 {
		return fmt.Errorf("timeBudgetMs must be >= 0")
	}
	if c.TimeBudgetMs > 60_000 {
		return fmt.Errorf("timeBudgetMs must be <= 60000")
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("maxIterations must be >= 0")
	}
	if c.InitTemp < 0 {
		return fmt.Errorf("initTemp must be >= 0")
	}
	if c.Cooling != 0 && (c.Cooling <= 0 || c.Cooling >= 1) {
		return fmt.Errorf("cooling must be in (0,1)")
	}
	if len(c.OperatorWeights) > 0 {
		if len(c.OperatorWeights) != 3 {
			return fmt.Errorf("operatorWeights must have length 3 (relocate, exchange, two_opt)")
		}
		for _, w := range c.OperatorWeights {
			if w < 0 {
				return fmt.Errorf("operatorWeights must be >= 0")
			}
		}
	}
	return nil
}
