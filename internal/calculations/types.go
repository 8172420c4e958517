package calculations

// InvestmentInput параметры SIP: ежемесячный взнос, годовая ставка и срок в годах.
// InitialAmount - необязательная единовременная сумма на старте.
type InvestmentInput struct {
	MonthlyContribution float64 `json:"monthlyContribution"`
	AnnualRatePercent   float64 `json:"rate"`
	Years               int     `json:"years"`
	InitialAmount       float64 `json:"principal,omitempty"`
}

// InvestmentYear представляет итоги одного года SIP
type InvestmentYear struct {
	Year     int     `json:"year"`
	Invested float64 `json:"invested"`
	Returns  float64 `json:"returns"`
	Total    float64 `json:"total"`
}

// InvestmentResult представляет результат расчета SIP
type InvestmentResult struct {
	MaturityAmount    float64          `json:"maturityAmount"`
	TotalContribution float64          `json:"totalContribution"`
	TotalReturns      float64          `json:"totalReturns"`
	YearlyBreakdown   []InvestmentYear `json:"yearlyBreakdown"`
}

// LoanInput параметры кредита
type LoanInput struct {
	Principal         float64 `json:"principal"`
	AnnualRatePercent float64 `json:"rate"`
	Years             int     `json:"years"`
}

// LoanYear представляет годовую корзину графика платежей
type LoanYear struct {
	Year      int     `json:"year"`
	Principal float64 `json:"principal"`
	Interest  float64 `json:"interest"`
	Total     float64 `json:"total"`
}

// LoanMonth представляет одну запись помесячного графика платежей
type LoanMonth struct {
	Month     int     `json:"month"`
	Payment   float64 `json:"payment"`
	Interest  float64 `json:"interest"`
	Principal float64 `json:"principal"`
	Remaining float64 `json:"remaining"`
}

// LoanResult представляет результат расчета EMI
type LoanResult struct {
	EMI             float64     `json:"emi"`
	TotalPayment    float64     `json:"totalPayment"`
	TotalInterest   float64     `json:"totalInterest"`
	YearlyBreakdown []LoanYear  `json:"yearlyBreakdown"`
	Schedule        []LoanMonth `json:"schedule"`
}

// PlanningInput параметры накопления на цель
type PlanningInput struct {
	GoalAmount           float64 `json:"goalAmount"`
	Years                int     `json:"years"`
	InflationRatePercent float64 `json:"inflationRate"`
	CurrentSavings       float64 `json:"currentSavings"`
}

// PlanningYear представляет год плана накоплений
type PlanningYear struct {
	Year    int     `json:"year"`
	Savings float64 `json:"savings"`
	Total   float64 `json:"total"`
	Target  float64 `json:"target"`
}

// PlanningResult представляет результат планирования цели
type PlanningResult struct {
	InflationAdjustedAmount float64        `json:"inflationAdjustedAmount"`
	MonthlySavings          float64        `json:"monthlySavings"`
	TotalSavings            float64        `json:"totalSavings"`
	GoalCovered             bool           `json:"goalCovered"`
	YearlyBreakdown         []PlanningYear `json:"yearlyBreakdown"`
}

// DebtInput параметры погашения долга фиксированным платежом.
// MaxMonths ограничивает симуляцию, 0 означает DefaultMaxPayoffMonths.
type DebtInput struct {
	DebtAmount        float64 `json:"debtAmount"`
	AnnualRatePercent float64 `json:"rate"`
	MonthlyPayment    float64 `json:"monthlyPayment"`
	MaxMonths         int     `json:"-"`
}

// DebtMonth представляет месяц графика погашения
type DebtMonth struct {
	Month     int     `json:"month"`
	Principal float64 `json:"principal"`
	Interest  float64 `json:"interest"`
	Remaining float64 `json:"remaining"`
}

// DebtResult представляет результат симуляции погашения
type DebtResult struct {
	TotalInterest float64     `json:"totalInterest"`
	TotalPayment  float64     `json:"totalPayment"`
	Months        int         `json:"months"`
	Timeline      []DebtMonth `json:"timeline"`
}

// RetirementInput параметры расчета пенсионного капитала.
// PayoutMonths - горизонт выплат после выхода на пенсию, 0 означает DefaultPayoutMonths.
type RetirementInput struct {
	CurrentAge           int     `json:"currentAge"`
	RetirementAge        int     `json:"retirementAge"`
	MonthlyExpenses      float64 `json:"monthlyExpenses"`
	InflationRatePercent float64 `json:"inflationRate"`
	ReturnRatePercent    float64 `json:"returnRate"`
	PayoutMonths         int     `json:"-"`
}

// CorpusPoint баланс накоплений на конец года
type CorpusPoint struct {
	Year    int     `json:"year"`
	Balance float64 `json:"balance"`
}

// RetirementResult представляет результат расчета пенсионного капитала
type RetirementResult struct {
	YearsToRetirement               int           `json:"yearsToRetirement"`
	InflationAdjustedAnnualExpenses float64       `json:"inflationAdjustedAnnualExpenses"`
	RequiredCorpus                  float64       `json:"requiredCorpus"`
	MonthlyInvestment               float64       `json:"monthlyInvestment"`
	TotalInvestmentNeeded           float64       `json:"totalInvestmentNeeded"`
	ExpectedReturns                 float64       `json:"expectedReturns"`
	CorpusGrowth                    []CorpusPoint `json:"corpusGrowth"`
}

// AllocationInput параметры распределения активов
type AllocationInput struct {
	Age          int         `json:"age"`
	RiskProfile  RiskProfile `json:"riskProfile"`
	HorizonYears int         `json:"horizon"`
}

// RoundedAllocation целые проценты для отображения, в сумме 100
type RoundedAllocation struct {
	Equity int `json:"equity"`
	Debt   int `json:"debt"`
	Other  int `json:"other"`
}

// RiskLevels условный уровень риска по классам активов (шкала 0-10)
type RiskLevels struct {
	Equity float64 `json:"equity"`
	Debt   float64 `json:"debt"`
	Other  float64 `json:"other"`
}

// AllocationResult представляет результат распределения активов
type AllocationResult struct {
	EquityPct  float64           `json:"equityPct"`
	DebtPct    float64           `json:"debtPct"`
	OtherPct   float64           `json:"otherPct"`
	Rounded    RoundedAllocation `json:"rounded"`
	RiskLevels RiskLevels        `json:"riskLevels"`
}
