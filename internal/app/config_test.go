package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bokslut/internal/ledger"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, "0.206", cfg.TaxRate.String())
	require.Equal(t, ledger.DefaultRangeTable(), cfg.AccountRanges)
	require.Equal(t, 1510, cfg.PostingAccounts.Receivables)
	require.Equal(t, 2631, cfg.PostingAccounts.OutputVAT6)

	closingCfg := cfg.Closing()
	require.Equal(t, 2, closingCfg.FinalizeGraceDays)
	require.Equal(t, "Europe/Stockholm", closingCfg.Location.String())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("CLOSING_TAX_RATE", "0.22")
	t.Setenv("CLOSING_FINALIZE_GRACE_DAYS", "5")
	t.Setenv("CLOSING_TIMEZONE", "UTC")
	t.Setenv("LEDGER_ACCOUNT_RANGES", "1000-1999:asset,2000-2499:equity,2500-2999:liability")
	t.Setenv("POSTING_ACCOUNT_BANK", "1940")
	t.Setenv("APP_REQUEST_TIMEOUT", "5s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 1940, cfg.PostingAccounts.Bank)
	require.Equal(t, 5*time.Second, cfg.AppRequestTimeout)
	require.Equal(t, ledger.ClassEquity, cfg.AccountRanges.Classify(2300))

	closingCfg := cfg.Closing()
	require.Equal(t, "0.22", closingCfg.TaxRate.String())
	require.Equal(t, 5, closingCfg.FinalizeGraceDays)
	require.Equal(t, time.UTC, closingCfg.Location)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"CLOSING_TIMEZONE":      "Mars/Olympus",
		"CLOSING_TAX_RATE":      "1.5",
		"LEDGER_ACCOUNT_RANGES": "1000-1999:asset,1500-2999:equity",
		"RATE_LIMIT_PER_MINUTE": "0",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}
