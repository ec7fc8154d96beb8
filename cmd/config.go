package cmd

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "mend"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	outputFlagName  = "output"
	excludeFlagName = "exclude"

	excludeConfigKey = "paths.exclude"

	strategyKey       = "repair.strategy"
	formulaKey        = "repair.formula"
	populationKey     = "repair.population"
	generationsKey    = "repair.generations"
	crossoverRateKey  = "repair.crossover_rate"
	mutationRateKey   = "repair.mutation_rate"
	maxOperatorsKey   = "repair.max_operators"
	topStatementsKey  = "repair.top_statements"
	parallelKey       = "repair.parallel"
	testTimeoutKey    = "repair.test_timeout"
	lineModeKey       = "repair.line_mode"
	sameFileDonorsKey = "repair.same_file_donors"
	seedKey           = "repair.seed"

	defaultStrategy       = "genetic"
	defaultFormula        = "ochiai"
	defaultPopulation     = 40
	defaultGenerations    = 10
	defaultCrossoverRate  = 0.7
	defaultMutationRate   = 0.6
	defaultMaxOperators   = 1
	defaultTopStatements  = 10
	defaultParallel       = 1
	defaultTestTimeout    = time.Minute * 2
	defaultLineMode       = false
	defaultSameFileDonors = false
	defaultSeed           = int64(1)

	defaultReportsDir = ".mend-reports"

	envPrefix = "MEND"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".mend.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(outputFlagName, defaultReportsDir)
	viper.SetDefault(excludeConfigKey, []string{})

	viper.SetDefault(strategyKey, defaultStrategy)
	viper.SetDefault(formulaKey, defaultFormula)
	viper.SetDefault(populationKey, defaultPopulation)
	viper.SetDefault(generationsKey, defaultGenerations)
	viper.SetDefault(crossoverRateKey, defaultCrossoverRate)
	viper.SetDefault(mutationRateKey, defaultMutationRate)
	viper.SetDefault(maxOperatorsKey, defaultMaxOperators)
	viper.SetDefault(topStatementsKey, defaultTopStatements)
	viper.SetDefault(parallelKey, defaultParallel)
	viper.SetDefault(testTimeoutKey, int64(defaultTestTimeout.Seconds()))
	viper.SetDefault(lineModeKey, defaultLineMode)
	viper.SetDefault(sameFileDonorsKey, defaultSameFileDonors)
	viper.SetDefault(seedKey, defaultSeed)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		return
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
