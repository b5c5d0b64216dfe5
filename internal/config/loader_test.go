package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/claimsorted/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.DBDriver, convey.ShouldEqual, "sqlite")
				convey.So(cfg.ListLimit, convey.ShouldEqual, 100)
				convey.So(cfg.InnerLimits["Medical"], convey.ShouldEqual, "750")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("CLAIMSORTED_ADDR", ":8080")
			_ = os.Setenv("CLAIMSORTED_DB_DRIVER", "postgres")
			_ = os.Setenv("CLAIMSORTED_DB_DSN", "postgres://claims@db/claims")
			_ = os.Setenv("CLAIMSORTED_DB_ACCESS_TOKEN", "tok")
			_ = os.Setenv("CLAIMSORTED_DB_MIGRATE", "false")
			_ = os.Setenv("CLAIMSORTED_STORE_TIMEOUT_MS", "250")
			_ = os.Setenv("CLAIMSORTED_LIST_LIMIT", "20")
			_ = os.Setenv("CLAIMSORTED_LOG_FORMAT", "json")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DBDriver, convey.ShouldEqual, "postgres")
				convey.So(cfg.DBDSN, convey.ShouldEqual, "postgres://claims@db/claims")
				convey.So(cfg.DBAccessToken, convey.ShouldEqual, "tok")
				convey.So(cfg.DBMigrate, convey.ShouldBeFalse)
				convey.So(cfg.StoreTimeoutMS, convey.ShouldEqual, 250)
				convey.So(cfg.ListLimit, convey.ShouldEqual, 20)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
# comments are fine
addr: ":9090"
db_dsn: "file:test.db"
list_limit: 50
inner_limits:
  Medical: 1000
  Dental: "120.10"
metrics_namespace: claims
metrics_latency_buckets: [1, 10, 100]
metrics_payout_buckets: [0, 500, 5000]
metrics_labels:
  region: eu
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CLAIMSORTED_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.DBDSN, convey.ShouldEqual, "file:test.db")
				convey.So(cfg.ListLimit, convey.ShouldEqual, 50)
				convey.So(cfg.StoreTimeoutMS, convey.ShouldEqual, 5000) // From defaults
			})

			convey.Convey("And the inner limit table is replaced, not merged", func() {
				convey.So(cfg.InnerLimits, convey.ShouldResemble, map[string]string{
					"Medical": "1000",
					"Dental":  "120.10",
				})
			})

			convey.Convey("And the metrics settings are read", func() {
				convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "claims")
				convey.So(cfg.MetricsSubsystem, convey.ShouldEqual, "payout") // From defaults
				convey.So(cfg.MetricsLatencyBuckets, convey.ShouldResemble, []float64{1, 10, 100})
				convey.So(cfg.MetricsPayoutBuckets, convey.ShouldResemble, []float64{0, 500, 5000})
				convey.So(cfg.MetricsLabels, convey.ShouldResemble, map[string]string{"region": "eu"})
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
list_limit: 50
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CLAIMSORTED_CONFIG", tmpFile)
			_ = os.Setenv("CLAIMSORTED_ADDR", ":8080") // This should override the file
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080") // Overridden by env
				convey.So(cfg.ListLimit, convey.ShouldEqual, 50) // From file
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CLAIMSORTED_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("CLAIMSORTED_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the file carries an inner limit that is not a decimal", func() {
			tmpFile := createTempConfigFile("inner_limits:\n  Medical: lots\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CLAIMSORTED_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then startup configuration is rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "Medical")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the dsn is blanked out", func() {
			_ = os.Setenv("CLAIMSORTED_DB_DSN", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then startup configuration is rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "db_dsn must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("CLAIMSORTED_LIST_LIMIT", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"CLAIMSORTED_CONFIG",
		"CLAIMSORTED_ADDR",
		"CLAIMSORTED_DB_DRIVER",
		"CLAIMSORTED_DB_DSN",
		"CLAIMSORTED_DB_ACCESS_TOKEN",
		"CLAIMSORTED_DB_MIGRATE",
		"CLAIMSORTED_STORE_TIMEOUT_MS",
		"CLAIMSORTED_LIST_LIMIT",
		"CLAIMSORTED_LOG_FORMAT",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "claimsorted-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
