package pipeline

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Stage names, in execution order. Each stage's task depends textually on
// the outputs of the stages before it.
const (
	StageVerification   = "verification"
	StageAnalysis       = "financial_analysis"
	StageRisk           = "risk_assessment"
	StageRecommendation = "investment_recommendation"
)

// Stage describes one unit of delegated analysis work: the persona handed
// to the model, the task body, and which context blocks the prompt gets.
type Stage struct {
	Name           string `yaml:"name"`
	Role           string `yaml:"role"`
	Goal           string `yaml:"goal"`
	Task           string `yaml:"task"`
	ExpectedOutput string `yaml:"expected_output"`
	UseSearch      bool   `yaml:"use_search"`
	UseMetrics     bool   `yaml:"use_metrics"`
}

// DefaultStages returns the built-in four-stage sequence:
// verification -> financial analysis -> risk assessment -> recommendation.
func DefaultStages() []Stage {
	return []Stage{
		{
			Name: StageVerification,
			Role: "Financial Document Validator",
			Goal: "Verify document authenticity and extract key financial data with high accuracy",
			Task: `Verify and validate the financial document.
1) Confirm the document contains legitimate financial data
2) Identify the document type and reporting period
3) Extract key metrics (revenue, profit, assets, liabilities)
4) Verify data integrity and consistency
5) Flag anomalies or data quality issues`,
			ExpectedOutput: `Verification Report:
- Document type & period
- Key metrics extracted
- Data quality assessment (with confidence)
- Anomalies/inconsistencies
- Status: VERIFIED / NEEDS_REVIEW / REJECTED`,
			UseMetrics: true,
		},
		{
			Name: StageAnalysis,
			Role: "Senior Financial Analyst",
			Goal: "Provide accurate, comprehensive financial analysis based on the user's query",
			Task: `Analyze the verified document per the user query.
Include: trends (revenue, margins), ratios (liquidity, leverage, efficiency),
balance sheet quality, cash flows, and industry comparisons.`,
			ExpectedOutput: `Financial Analysis:
- Executive summary
- Quantitative metrics & ratios
- Trend analysis
- Strengths/weaknesses with data
- Industry context`,
			UseSearch:  true,
			UseMetrics: true,
		},
		{
			Name: StageRisk,
			Role: "Financial Risk Assessment Expert",
			Goal: "Conduct thorough risk analysis and provide comprehensive risk management strategies",
			Task: `Provide a comprehensive risk assessment:
liquidity/credit/market/operational risk, business model durability, regulatory,
macro/industry risks, ESG factors. Quantify where possible.`,
			ExpectedOutput: `Risk Assessment:
- Overall rating & rationale
- Category breakdown with severity
- Key indicators & warnings
- Mitigation strategies
- Stress scenarios`,
			UseSearch: true,
		},
		{
			Name: StageRecommendation,
			Role: "Investment Strategy Advisor",
			Goal: "Provide strategic investment recommendations based on comprehensive financial analysis",
			Task: `Based on the financial and risk analysis and the user query,
provide an evidence-based investment recommendation with approach, sizing,
entry/exit, diversification impact, and alternative scenarios.`,
			ExpectedOutput: `Investment Recommendation:
- Thesis & data support
- BUY/HOLD/SELL + target(s)
- Risk-adjusted return & horizon
- Position sizing
- Catalysts/milestones
- Bull/base/bear with probabilities
- Implementation notes`,
			UseSearch: true,
		},
	}
}

// LoadStages reads stage definitions from a YAML file. The file replaces
// the default sequence wholesale; an empty path returns the defaults.
func LoadStages(path string) ([]Stage, error) {
	if path == "" {
		return DefaultStages(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read stages %s", path)
	}

	var wrapper struct {
		Stages []Stage `yaml:"stages"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "pipeline: parse stages")
	}
	if len(wrapper.Stages) == 0 {
		return nil, eris.Errorf("pipeline: %s defines no stages", path)
	}
	for i, s := range wrapper.Stages {
		if s.Name == "" {
			return nil, eris.Errorf("pipeline: stage %d has no name", i)
		}
		if s.Task == "" {
			return nil, eris.Errorf("pipeline: stage %q has no task", s.Name)
		}
	}
	return wrapper.Stages, nil
}
