package policy

type Policy struct {
	PolicyID      string       `yaml:"policy_id"`
	PolicyVersion string       `yaml:"policy_version"`
	Bias          BiasPolicy   `yaml:"bias"`
	Ethics        EthicsPolicy `yaml:"ethics"`
	Regulations   []Regulation `yaml:"regulations"`
	Defaults      Defaults     `yaml:"defaults"`
}

type BiasPolicy struct {
	WatchGroups []string `yaml:"watch_groups"`
	// Threshold is the number of watched-group applications in a batch at
	// which the screen reports likely bias.
	Threshold int `yaml:"threshold"`
}

type EthicsPolicy struct {
	Guidelines         []string `yaml:"guidelines"`
	ProhibitedCriteria []string `yaml:"prohibited_criteria"`
}

type Regulation struct {
	Name string `yaml:"name"`
	Rule string `yaml:"rule"`
}

type Defaults struct {
	LoanCriteria []string `yaml:"loan_criteria"`
}
