package mail

import "fmt"

const signature = "\n\nRegards,\nSmartSpend Team"

// BudgetAlertMessage returns the subject and body of a budget alert email.
// spent and limit are expected to be preformatted amounts.
func BudgetAlertMessage(category, spent, limit string, exceeded bool) (string, string) {
	if exceeded {
		return "Budget Exceeded: " + category,
			fmt.Sprintf("Hi!\n\nYou have exceeded your budget for %s.\nSpent: %s / Limit: %s\n\n"+
				"Please review your expenses to get back on track."+signature, category, spent, limit)
	}
	return "Budget Nearing Limit: " + category,
		fmt.Sprintf("Hi!\n\nYou're nearing your budget for %s.\nSpent: %s / Limit: %s\n\n"+
			"Keep an eye on your expenses to avoid overspending."+signature, category, spent, limit)
}
