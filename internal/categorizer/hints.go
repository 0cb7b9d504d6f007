package categorizer

// Hint maps a category to description keywords. Keywords are matched as
// lowercase substrings.
type Hint struct {
	Category string
	Keywords []string
}

// DefaultHints is scanned in order and the first matching keyword wins, so
// earlier categories take precedence on overlapping keywords.
var DefaultHints = []Hint{
	{"Housing", []string{"rent", "mortgage", "lease", "hyra"}},
	{"Utilities", []string{"electric", "electricity", "water", "internet", "phone", "wifi"}},
	{"Groceries", []string{"grocery", "supermarket", "ica", "coop", "lidl", "willys"}},
	{"Dining", []string{"restaurant", "cafe", "coffee", "bar", "pizza", "burger"}},
	{"Transport", []string{"uber", "taxi", "bus", "metro", "train", "sl", "tram"}},
	{"Travel", []string{"hotel", "flight", "airbnb", "booking", "ryanair", "sas"}},
	{"Shopping", []string{"amazon", "ikea", "h&m", "zara", "shop"}},
	{"Subscriptions", []string{"netflix", "spotify", "subscription", "adobe"}},
	{"Health", []string{"pharmacy", "doctor", "clinic", "gym"}},
	{"Education", []string{"course", "tuition", "udemy", "coursera"}},
	{"Business", []string{"invoice", "client", "office", "supplies"}},
	{"Taxes", []string{"tax", "skatt"}},
	{"Fees", []string{"fee", "charge", "commission"}},
	{"Tithe", []string{"church", "tithe", "tionde", "we are one church", "hillsong", "filadelfia"}},
	{"Charity", []string{"charity", "donation", "gift", "red cross", "unicef"}},
	{"Overföring", []string{"överföring", "overföring", "internal transfer", "balance movement", "account transfer", "egen överföring"}},
	{"Transfers", []string{"transfer", "bank", "swish"}},
	{"Savings/Investments", []string{"investment", "savings", "fund", "stock"}},
	{"Income", []string{"salary", "payroll", "income", "refund"}},
}
