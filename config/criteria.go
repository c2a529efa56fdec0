package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const defaultSearchURL = "https://finder.porsche.com/gb/en-GB/search/taycan" +
	"?model=taycan&maximum-price=60000&category=taycan-turbo-s" +
	"&performance=sport-chrono-package&minimum-registration-date=2020" +
	"&maximum-registratino-date=2023&e-performance=bigbattery"

// Criteria describes what the tracker is watching for. It lives in a small
// YAML file next to the binary so the search can be tuned without a rebuild.
type Criteria struct {
	SearchURL    string   `yaml:"search_url"`
	ModelName    string   `yaml:"model_name"`
	TargetYear   int      `yaml:"target_year"`
	NotifyEmail  string   `yaml:"notify_email"`
	DashboardURL string   `yaml:"dashboard_url"`
	PremiumOpts  []string `yaml:"premium_options"`
}

// LoadCriteria reads the watch criteria file. A missing file is not an error;
// defaults apply. A file that exists but does not parse is.
func LoadCriteria(path string) (*Criteria, error) {
	c := &Criteria{
		SearchURL:  defaultSearchURL,
		ModelName:  "Porsche Taycan Turbo S",
		TargetYear: 2022,
		PremiumOpts: []string{
			"PCCB", "Ceramic Composite Brake",
			"InnoDrive", "Adaptive Cruise",
			"Head-Up Display",
			"Carbon SportDesign",
			"Lane Change Assist",
			"Matrix LED",
		},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("criteria: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("criteria: parse %s: %w", path, err)
	}
	return c, nil
}
