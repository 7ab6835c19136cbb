package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/jmylchreest/scholarscrape/internal/delay"
)

// AppName is used for the config directory, file name and env prefix.
const AppName = "scholarscrape"

// Keys understood by Load. Flags and config file entries use these names;
// environment variables use SCHOLARSCRAPE_<KEY>.
const (
	KeyQuery           = "query"
	KeyBaseURL         = "base_url"
	KeyLang            = "lang"
	KeyYearFrom        = "year_from"
	KeySortByDate      = "sort_by_date"
	KeyMaxPages        = "max_pages"
	KeyOutput          = "output"
	KeyFormat          = "format"
	KeySheet           = "sheet"
	KeyExportOnFailure = "export_on_failure"
	KeyPageDelay       = "page_delay"
	KeySearchDelay     = "search_delay"
	KeyClickDelay      = "click_delay"
	KeySettleDelay     = "settle_delay"
	KeyRetryDelay      = "retry_delay"
	KeyNextRetries     = "next_retries"
	KeyWaitTimeout     = "wait_timeout"
	KeyPollAttempts    = "poll_attempts"
	KeyPollInterval    = "poll_interval"
	KeyLinger          = "linger"
	KeyMode            = "mode"
	KeyHeadless        = "headless"
	KeyStealth         = "stealth"
	KeyUserAgent       = "user_agent"
	KeyChromePath      = "chrome_path"
	KeyInteractive     = "interactive"
	KeyBlockMarkers    = "block_markers"
	KeySelectors       = "selectors"
)

// Dir returns the per-user configuration directory.
func Dir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// SetDefaults registers Default() values on v so unset keys resolve sensibly.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeyBaseURL, d.BaseURL)
	v.SetDefault(KeyLang, d.Lang)
	v.SetDefault(KeyYearFrom, d.YearFrom)
	v.SetDefault(KeySortByDate, d.SortByDate)
	v.SetDefault(KeyMaxPages, d.MaxPages)
	v.SetDefault(KeyOutput, d.OutputPath)
	v.SetDefault(KeySheet, d.Sheet)
	v.SetDefault(KeyExportOnFailure, d.ExportOnFailure)
	v.SetDefault(KeyPageDelay, formatRange(d.PageLoadDelay))
	v.SetDefault(KeySearchDelay, formatRange(d.SearchDelay))
	v.SetDefault(KeyClickDelay, formatRange(d.ClickDelay))
	v.SetDefault(KeySettleDelay, formatRange(d.SettleDelay))
	v.SetDefault(KeyRetryDelay, formatRange(d.RetryDelay))
	v.SetDefault(KeyNextRetries, d.NextRetries)
	v.SetDefault(KeyWaitTimeout, d.WaitTimeout)
	v.SetDefault(KeyPollAttempts, d.ResultsPollAttempts)
	v.SetDefault(KeyPollInterval, d.ResultsPollInterval)
	v.SetDefault(KeyLinger, d.Linger)
	v.SetDefault(KeyMode, string(d.Mode))
	v.SetDefault(KeyHeadless, d.Headless)
	v.SetDefault(KeyStealth, d.Stealth)
	v.SetDefault(KeyInteractive, d.Interactive)
	v.SetDefault(KeyBlockMarkers, d.BlockMarkers)

	s := d.Selectors
	v.SetDefault(KeySelectors+".result", s.Result)
	v.SetDefault(KeySelectors+".title_link", s.TitleLink)
	v.SetDefault(KeySelectors+".authors", s.Authors)
	v.SetDefault(KeySelectors+".abstract", s.Abstract)
	v.SetDefault(KeySelectors+".next", s.Next)
	v.SetDefault(KeySelectors+".disabled_class", s.DisabledClass)
}

// Load builds a Config from v and validates it.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Query:      strings.TrimSpace(v.GetString(KeyQuery)),
		BaseURL:    v.GetString(KeyBaseURL),
		Lang:       v.GetString(KeyLang),
		YearFrom:   v.GetInt(KeyYearFrom),
		SortByDate: v.GetBool(KeySortByDate),
		MaxPages:   v.GetInt(KeyMaxPages),

		OutputPath:      v.GetString(KeyOutput),
		Format:          strings.ToLower(v.GetString(KeyFormat)),
		Sheet:           v.GetString(KeySheet),
		ExportOnFailure: v.GetBool(KeyExportOnFailure),

		NextRetries:         v.GetInt(KeyNextRetries),
		WaitTimeout:         v.GetDuration(KeyWaitTimeout),
		ResultsPollAttempts: v.GetInt(KeyPollAttempts),
		ResultsPollInterval: v.GetDuration(KeyPollInterval),
		Linger:              v.GetDuration(KeyLinger),

		Mode:       Mode(strings.ToLower(v.GetString(KeyMode))),
		Headless:   v.GetBool(KeyHeadless),
		Stealth:    v.GetBool(KeyStealth),
		UserAgent:  v.GetString(KeyUserAgent),
		ChromePath: v.GetString(KeyChromePath),

		Interactive:  v.GetBool(KeyInteractive),
		BlockMarkers: v.GetStringSlice(KeyBlockMarkers),

		Selectors: Selectors{
			Result:        v.GetString(KeySelectors + ".result"),
			TitleLink:     v.GetString(KeySelectors + ".title_link"),
			Authors:       v.GetString(KeySelectors + ".authors"),
			Abstract:      v.GetString(KeySelectors + ".abstract"),
			Next:          v.GetString(KeySelectors + ".next"),
			DisabledClass: v.GetString(KeySelectors + ".disabled_class"),
		},
	}

	ranges := []struct {
		key string
		dst *delay.Range
	}{
		{KeyPageDelay, &cfg.PageLoadDelay},
		{KeySearchDelay, &cfg.SearchDelay},
		{KeyClickDelay, &cfg.ClickDelay},
		{KeySettleDelay, &cfg.SettleDelay},
		{KeyRetryDelay, &cfg.RetryDelay},
	}
	for _, r := range ranges {
		parsed, err := delay.ParseRange(v.GetString(r.key))
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidDelay, r.key, err)
		}
		*r.dst = parsed
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func formatRange(r delay.Range) string {
	return r.Min.String() + "-" + r.Max.String()
}
