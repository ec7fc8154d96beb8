package cmd

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mend.dev/pkg/mend/internal/adapter"
	"mend.dev/pkg/mend/internal/controller"
	"mend.dev/pkg/mend/internal/domain"
	m "mend.dev/pkg/mend/internal/model"
	"mend.dev/pkg/mend/pkg"
)

var repairStrategyFlag string
var repairFormulaFlag string
var repairParallelFlag int
var repairGenerationsFlag int
var repairPopulationFlag int
var repairMaxOperatorsFlag int
var repairTopFlag int
var repairSeedFlag int64
var repairLineModeFlag bool
var repairSameFileDonorsFlag bool
var repairPlainFlag bool
var repairVerboseFlag bool
var repairLogFileFlag string

// repairCmd represents the repair command.
var repairCmd = newRepairCmd()

func newRepairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repair [path]",
		Short: "Search for patches that make the failing tests pass",
		Long: `Repair the Go module at the given path (default: current directory).

The failing test suite drives fault localization; the search then explores
statement-level edits (replace, insert, delete) of the program's own code
until every test passes, and reports each repair as a minimal unified diff.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configureLogger(repairLogFileFlag, repairVerboseFlag || viper.GetBool(logVerboseKey))

			root := m.Path(".")
			if len(args) == 1 {
				root = m.Path(args[0])
			}

			return runRepair(cmd, root)
		},
	}

	configureRepairFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(repairCmd)
}

func configureRepairFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&repairStrategyFlag, "strategy", "s", viper.GetString(strategyKey), "search strategy: genetic or bounded")
	bindFlagToConfig(cmd.Flags().Lookup("strategy"), strategyKey)

	cmd.Flags().StringVar(&repairFormulaFlag, "formula", viper.GetString(formulaKey), "suspiciousness formula: ochiai or tarantula")
	bindFlagToConfig(cmd.Flags().Lookup("formula"), formulaKey)

	cmd.Flags().IntVarP(&repairParallelFlag, "parallel", "p", viper.GetInt(parallelKey), "number of parallel fitness evaluations")
	bindFlagToConfig(cmd.Flags().Lookup("parallel"), parallelKey)

	cmd.Flags().IntVarP(&repairGenerationsFlag, "generations", "g", viper.GetInt(generationsKey), "generation budget for the genetic strategy")
	bindFlagToConfig(cmd.Flags().Lookup("generations"), generationsKey)

	cmd.Flags().IntVar(&repairPopulationFlag, "population", viper.GetInt(populationKey), "population size for the genetic strategy")
	bindFlagToConfig(cmd.Flags().Lookup("population"), populationKey)

	cmd.Flags().IntVarP(&repairMaxOperatorsFlag, "max-operators", "k", viper.GetInt(maxOperatorsKey), "candidate size bound for the bounded strategy")
	bindFlagToConfig(cmd.Flags().Lookup("max-operators"), maxOperatorsKey)

	cmd.Flags().IntVar(&repairTopFlag, "top", viper.GetInt(topStatementsKey), "statement pool bound for the bounded strategy")
	bindFlagToConfig(cmd.Flags().Lookup("top"), topStatementsKey)

	cmd.Flags().Int64Var(&repairSeedFlag, "seed", viper.GetInt64(seedKey), "random seed for the genetic strategy")
	bindFlagToConfig(cmd.Flags().Lookup("seed"), seedKey)

	cmd.Flags().BoolVar(&repairLineModeFlag, "line-mode", viper.GetBool(lineModeKey), "restrict mutation targets to atomic statements without nested blocks")
	bindFlagToConfig(cmd.Flags().Lookup("line-mode"), lineModeKey)

	cmd.Flags().BoolVar(&repairSameFileDonorsFlag, "same-file-donors", viper.GetBool(sameFileDonorsKey), "restrict donor statements to the target's file")
	bindFlagToConfig(cmd.Flags().Lookup("same-file-donors"), sameFileDonorsKey)

	cmd.Flags().BoolVar(&repairPlainFlag, "plain", false, "force plain text output even on a terminal")
	cmd.Flags().BoolVarP(&repairVerboseFlag, "verbose", "v", false, "enable debug logging")
	cmd.Flags().StringVar(&repairLogFileFlag, "log-file", "", "log file path (default .mend.log)")
}

func runRepair(cmd *cobra.Command, root m.Path) error {
	ctx := cmd.Context()

	testTimeout := time.Duration(viper.GetInt64(testTimeoutKey)) * time.Second

	journal, err := pkg.NewJournal[domain.EvalRecord]()
	if err != nil {
		slog.Warn("evaluation journal unavailable", "error", err)

		journal = nil
	} else {
		defer func() {
			if err := journal.Close(); err != nil {
				slog.Error("failed to close evaluation journal", "error", err)
			}
		}()
	}

	ui := selectUI(cmd)

	if err := ui.Start(ctx); err != nil {
		return err
	}
	defer ui.Close(ctx)

	repairer := domain.NewRepairer(domain.RepairDeps{
		Extractor: extractor,
		Coverage:  adapter.NewGoCoverCollector(oracle, testTimeout),
		Renderer:  renderer,
		Oracle:    oracle,
		FS:        fsAdapter,
		Differ:    differ,
		Store:     reportStore,
		UI:        ui,
		Journal:   journal,
	}, repairConfigFromViper(testTimeout))

	_, err = repairer.Repair(ctx, root)

	return err
}

// repairConfigFromViper assembles the repair configuration from the resolved
// viper state, after flag binding.
func repairConfigFromViper(testTimeout time.Duration) domain.RepairConfig {
	return domain.RepairConfig{
		Strategy:       viper.GetString(strategyKey),
		Formula:        viper.GetString(formulaKey),
		Excludes:       viper.GetStringSlice(excludeConfigKey),
		LineMode:       viper.GetBool(lineModeKey),
		SameFileDonors: viper.GetBool(sameFileDonorsKey),
		TestTimeout:    testTimeout,
		OutputDir:      m.Path(viper.GetString(outputFlagName)),
		Genetic: domain.GeneticConfig{
			PopulationSize: viper.GetInt(populationKey),
			Generations:    viper.GetInt(generationsKey),
			CrossoverRate:  viper.GetFloat64(crossoverRateKey),
			MutationRate:   viper.GetFloat64(mutationRateKey),
			Workers:        viper.GetInt(parallelKey),
			Seed:           viper.GetInt64(seedKey),
		},
		Bounded: domain.BoundedConfig{
			MaxOperators:  viper.GetInt(maxOperatorsKey),
			TopStatements: viper.GetInt(topStatementsKey),
		},
	}
}

func selectUI(cmd *cobra.Command) controller.UI {
	if repairPlainFlag || !controller.IsTTY() {
		return controller.NewSimpleUI(cmd)
	}

	return controller.NewTUI(os.Stdout)
}
