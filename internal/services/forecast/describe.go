package forecast

import (
	"fmt"
	"strings"
)

const ruleWidth = 78

func describe(m *fittedModel) string {
	a := m.arima
	var b strings.Builder

	heavy := strings.Repeat("=", ruleWidth)
	light := strings.Repeat("-", ruleWidth)

	selection := "exhaustive"
	if m.search.stepwise {
		selection = "stepwise"
	}

	fmt.Fprintf(&b, "%*s\n", (ruleWidth+len("ARIMA Model Results"))/2, "ARIMA Model Results")
	b.WriteString(heavy + "\n")
	row(&b, "Model:", a.order.String(), "No. Observations:", fmt.Sprintf("%d", a.nobs))
	row(&b, "Selection:", fmt.Sprintf("%s (%s)", selection, m.criterion), "Models evaluated:", fmt.Sprintf("%d", m.search.evaluated))
	row(&b, "Observed values:", fmt.Sprintf("%d", m.observed), "Bridged gaps:", fmt.Sprintf("%d", m.bridged))
	row(&b, "Log Likelihood:", fmt.Sprintf("%.3f", a.logLik), "AIC:", fmt.Sprintf("%.3f", a.aic))
	row(&b, "AICc:", fmt.Sprintf("%.3f", a.aicc), "BIC:", fmt.Sprintf("%.3f", a.bic))
	b.WriteString(light + "\n")

	fmt.Fprintf(&b, "%-16s %16s\n", "", "coef")
	if a.withMean {
		label := "intercept"
		if a.order.D == 1 {
			label = "drift"
		}
		fmt.Fprintf(&b, "%-16s %16.4f\n", label, a.mean)
	}
	for i, v := range a.ar {
		fmt.Fprintf(&b, "%-16s %16.4f\n", fmt.Sprintf("ar.L%d", i+1), v)
	}
	for i, v := range a.ma {
		fmt.Fprintf(&b, "%-16s %16.4f\n", fmt.Sprintf("ma.L%d", i+1), v)
	}
	fmt.Fprintf(&b, "%-16s %16.4f\n", "sigma2", a.sigma2)
	b.WriteString(light + "\n")

	if lb := ljungBox(a.originalResiduals(), 10, a.order.P+a.order.Q); lb != nil {
		row(&b, fmt.Sprintf("Ljung-Box (L%d) (Q):", lb.Lags), fmt.Sprintf("%.2f", lb.Statistic), "Prob(Q):", fmt.Sprintf("%.2f", lb.PValue))
	} else {
		row(&b, "Ljung-Box (Q):", "n/a", "Prob(Q):", "n/a")
	}
	b.WriteString(heavy + "\n")

	return b.String()
}

func row(b *strings.Builder, k1, v1, k2, v2 string) {
	fmt.Fprintf(b, "%-22s%16s    %-22s%14s\n", k1, v1, k2, v2)
}
