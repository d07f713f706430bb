package rationale

// Template is one parameterized rationale sentence. Tokens use {name} form
// and every token must be substituted before the text leaves the generator.
type Template struct {
	ID   string
	Text string
}

// Education templates keyed by the content item's topic family.
var (
	templateCreditUtilization = Template{
		ID:   "edu_credit_utilization_v2",
		Text: "One of your cards is at {utilization_pct}% of its limit with a ${card_balance} balance. This guide covers ways people approach paying down revolving balances.",
	}
	templateSubscriptions = Template{
		ID:   "edu_subscriptions_v2",
		Text: "We noticed {subscription_count} recurring charges totaling about ${recurring_spend} a month. Trimming even some of them could free up around ${projected_savings} monthly.",
	}
	templateSavings = Template{
		ID:   "edu_savings_v1",
		Text: "Your savings currently cover about {emergency_months} months of typical spending. This article looks at how an emergency cushion is commonly sized.",
	}
	templateIncome = Template{
		ID:   "edu_income_v1",
		Text: "Your income pattern looks {income_frequency}, with roughly ${monthly_income} coming in each month. Here are budgeting approaches suited to that pattern.",
	}
)

// Persona-flavored generic education templates, used when no topic matches.
var personaTemplates = map[string]Template{
	"high_utilization": {
		ID:   "edu_generic_high_utilization_v1",
		Text: "Based on your recent credit activity, this guide on managing card balances may be relevant to you.",
	},
	"variable_income": {
		ID:   "edu_generic_variable_income_v1",
		Text: "Because your income arrives on a changing schedule, this piece on smoothing month-to-month cash flow may be useful.",
	},
	"subscription_heavy": {
		ID:   "edu_generic_subscription_heavy_v1",
		Text: "Given how many recurring services show up in your spending, this overview of auditing subscriptions may be worth a look.",
	},
	"savings_builder": {
		ID:   "edu_generic_savings_builder_v1",
		Text: "Since your savings have been trending up, this article on where to direct extra savings may interest you.",
	},
	"net_worth_maximizer": {
		ID:   "edu_generic_net_worth_maximizer_v1",
		Text: "With a solid cash position already in place, this piece looks at options people weigh once their emergency fund is full.",
	},
}

// templateGeneric is the last-resort education rationale.
var templateGeneric = Template{
	ID:   "edu_generic_v1",
	Text: "This article was selected based on patterns in your recent financial activity.",
}

// Offer templates by most-salient signal.
var (
	templateOfferUtilization = Template{
		ID:   "offer_utilization_v1",
		Text: "With a card at {utilization_pct}% of its limit, this offer may help lower what that balance costs. {benefit_phrase}",
	}
	templateOfferSubscription = Template{
		ID:   "offer_subscription_v1",
		Text: "You carry {subscription_count} recurring charges each month, and this offer relates to how you manage them. {benefit_phrase}",
	}
	templateOfferGeneric = Template{
		ID:   "offer_generic_v1",
		Text: "This offer matched patterns in your recent account activity. {benefit_phrase}",
	}
)

// Benefit phrases appended to offer rationales, by persona.
var benefitPhrases = map[string]string{
	"high_utilization":    "It is designed around reducing interest costs.",
	"variable_income":     "It is built for people whose income varies month to month.",
	"subscription_heavy":  "It can make recurring charges easier to track.",
	"savings_builder":     "It rewards consistent saving habits.",
	"net_worth_maximizer": "It offers a higher return on idle cash.",
}

// benefitPhraseGeneric is used when no persona phrase applies.
const benefitPhraseGeneric = "See the offer details for what it provides."
