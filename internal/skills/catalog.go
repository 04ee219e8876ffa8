package skills

import "regexp"

// Built-in catalog. Segment codes follow the UNSPSC top level.

func patterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

var defaultSkills = []Skill{
	{
		ID:          "it_hardware",
		Name:        "IT Hardware",
		Description: "Computers, peripherals and network equipment",
		Segments:    []string{"43"},
		Keywords:    patterns(`\blaptops?\b`, `\bdesktops?\b`, `\bmonitors?\b`, `\bservers?\b`, `\bdell\b`, `\blenovo\b`, `\bhp\b`, `\bcisco\b`, `\bkeyboards?\b`),
		Priority:    9,
	},
	{
		ID:          "software_saas",
		Name:        "Software & SaaS",
		Description: "Software licences, subscriptions and cloud services",
		Segments:    []string{"43", "81"},
		Keywords:    patterns(`\bsoftware\b`, `\blicen[cs]es?\b`, `\bsubscriptions?\b`, `\bsaas\b`, `\bmicrosoft\b`, `\bsalesforce\b`, `\badobe\b`, `\batlassian\b`, `\baws\b`, `\bcloud\b`),
		Priority:    8,
	},
	{
		ID:          "office_supplies",
		Name:        "Office Supplies",
		Description: "Paper, stationery and consumables",
		Segments:    []string{"44", "14"},
		Keywords:    patterns(`\bpaper\b`, `\bfolders?\b`, `\bstaples\b`, `\bpens?\b`, `\btoner\b`, `\bstationery\b`, `\boffice depot\b`, `\benvelopes?\b`),
		Priority:    6,
	},
	{
		ID:          "professional_services",
		Name:        "Professional Services",
		Description: "Consulting, legal, audit and advisory services",
		Segments:    []string{"80", "84"},
		Keywords:    patterns(`\bconsult`, `\badvisory\b`, `\blegal\b`, `\baudit`, `\baccenture\b`, `\bdeloitte\b`, `\bmckinsey\b`, `\blaw firm\b`),
		Priority:    7,
	},
	{
		ID:          "facilities",
		Name:        "Facilities",
		Description: "Building maintenance, cleaning and furniture",
		Segments:    []string{"72", "76", "56"},
		Keywords:    patterns(`\bcleaning\b`, `\bjanitorial\b`, `\bmaintenance\b`, `\bhvac\b`, `\bfurniture\b`, `\bchairs?\b`, `\brepairs?\b`, `\bfacilit`),
		Priority:    5,
	},
	{
		ID:          "travel",
		Name:        "Travel & Expenses",
		Description: "Flights, hotels, ground transport and meals",
		Segments:    []string{"90", "78"},
		Keywords:    patterns(`\bflights?\b`, `\bairlines?\b`, `\bhotels?\b`, `\buber\b`, `\blyft\b`, `\btravel\b`, `\bmarriott\b`, `\btaxi\b`),
		Priority:    5,
	},
	{
		ID:          "marketing",
		Name:        "Marketing",
		Description: "Advertising, agencies, events and sponsorship",
		Segments:    []string{"82"},
		Keywords:    patterns(`\badvertis`, `\bmarketing\b`, `\bcampaigns?\b`, `\bagency\b`, `\bgoogle ads\b`, `\bsponsorship\b`, `\btrade show\b`),
		Priority:    6,
	},
	{
		ID:          "logistics",
		Name:        "Logistics",
		Description: "Freight, courier and shipping services",
		Segments:    []string{"78"},
		Keywords:    patterns(`\bfreight\b`, `\bshipping\b`, `\bfedex\b`, `\bups\b`, `\bdhl\b`, `\bcourier\b`, `\blogistics\b`),
		Priority:    6,
	},
}

var defaultTaxonomy = map[string][]TaxonomyEntry{
	"14": {
		{Code: "14111500", Title: "Printing and writing paper", Segment: "14", Family: "1411", Class: "141115"},
		{Code: "14111800", Title: "Business use papers", Segment: "14", Family: "1411", Class: "141118"},
	},
	"43": {
		{Code: "43211503", Title: "Notebook computers", Segment: "43", Family: "4321", Class: "432115", Commodity: "43211503"},
		{Code: "43211507", Title: "Desktop computers", Segment: "43", Family: "4321", Class: "432115", Commodity: "43211507"},
		{Code: "43211902", Title: "Computer monitors", Segment: "43", Family: "4321", Class: "432119", Commodity: "43211902"},
		{Code: "43222600", Title: "Network service equipment", Segment: "43", Family: "4322", Class: "432226"},
		{Code: "43231500", Title: "Business function specific software", Segment: "43", Family: "4323", Class: "432315"},
		{Code: "43233200", Title: "Security and protection software", Segment: "43", Family: "4323", Class: "432332"},
	},
	"44": {
		{Code: "44121600", Title: "Desk supplies", Segment: "44", Family: "4412", Class: "441216"},
		{Code: "44122000", Title: "Folders and binders", Segment: "44", Family: "4412", Class: "441220", Description: "File folders, binders and accessories"},
		{Code: "44121700", Title: "Writing instruments", Segment: "44", Family: "4412", Class: "441217"},
		{Code: "44103100", Title: "Printer and toner supplies", Segment: "44", Family: "4410", Class: "441031"},
	},
	"56": {
		{Code: "56101500", Title: "Furniture", Segment: "56", Family: "5610", Class: "561015"},
	},
	"72": {
		{Code: "72101500", Title: "Building support services", Segment: "72", Family: "7210", Class: "721015", Description: "HVAC, repairs and maintenance"},
	},
	"76": {
		{Code: "76111500", Title: "General building and office cleaning", Segment: "76", Family: "7611", Class: "761115"},
	},
	"78": {
		{Code: "78102200", Title: "Postal and small parcel and courier services", Segment: "78", Family: "7810", Class: "781022"},
		{Code: "78101800", Title: "Road cargo transport", Segment: "78", Family: "7810", Class: "781018", Description: "Freight by truck"},
		{Code: "78111800", Title: "Passenger road transportation", Segment: "78", Family: "7811", Class: "781118", Description: "Taxi and ride share"},
	},
	"80": {
		{Code: "80101500", Title: "Business and corporate management consultation services", Segment: "80", Family: "8010", Class: "801015"},
		{Code: "80121600", Title: "Business law services", Segment: "80", Family: "8012", Class: "801216"},
	},
	"81": {
		{Code: "81112000", Title: "Data services", Segment: "81", Family: "8111", Class: "811120"},
		{Code: "81162000", Title: "Cloud-based software as a service", Segment: "81", Family: "8116", Class: "811620"},
	},
	"82": {
		{Code: "82101500", Title: "Print advertising", Segment: "82", Family: "8210", Class: "821015"},
		{Code: "82101600", Title: "Broadcast advertising", Segment: "82", Family: "8210", Class: "821016"},
		{Code: "82111900", Title: "Events and trade show services", Segment: "82", Family: "8211", Class: "821119"},
	},
	"84": {
		{Code: "84111600", Title: "Audit services", Segment: "84", Family: "8411", Class: "841116"},
	},
	"90": {
		{Code: "90121500", Title: "Travel agents", Segment: "90", Family: "9012", Class: "901215"},
		{Code: "90111800", Title: "Hotel rooms", Segment: "90", Family: "9011", Class: "901118"},
		{Code: "90101500", Title: "Banquet and catering services", Segment: "90", Family: "9010", Class: "901015"},
	},
}

var defaultExamples = map[string][]ClassificationExample{
	"it_hardware": {
		{
			Input:  ExampleInput{Vendor: "Dell Technologies", Description: "Latitude 5440 laptop x10"},
			Output: ExampleOutput{Code: "43211503", Title: "Notebook computers", Reasoning: "Laptops are notebook computers"},
		},
	},
	"software_saas": {
		{
			Input:  ExampleInput{Vendor: "Atlassian", Description: "Jira cloud annual subscription"},
			Output: ExampleOutput{Code: "81162000", Title: "Cloud-based software as a service", Reasoning: "Hosted subscription software"},
		},
	},
	"office_supplies": {
		{
			Input:  ExampleInput{Vendor: "Staples", Description: "A4 copy paper, 10 reams"},
			Output: ExampleOutput{Code: "14111500", Title: "Printing and writing paper", Reasoning: "Copy paper is printing paper"},
		},
	},
	"professional_services": {
		{
			Input:  ExampleInput{Vendor: "Deloitte", Description: "Q3 statutory audit"},
			Output: ExampleOutput{Code: "84111600", Title: "Audit services", Reasoning: "External audit engagement"},
		},
	},
	"facilities": {
		{
			Input:  ExampleInput{Vendor: "CleanCo", Description: "Monthly office cleaning"},
			Output: ExampleOutput{Code: "76111500", Title: "General building and office cleaning", Reasoning: "Recurring janitorial service"},
		},
	},
	"travel": {
		{
			Input:  ExampleInput{Vendor: "Marriott", Description: "Hotel stay, 3 nights"},
			Output: ExampleOutput{Code: "90111800", Title: "Hotel rooms", Reasoning: "Lodging expense"},
		},
	},
	"marketing": {
		{
			Input:  ExampleInput{Vendor: "Google", Description: "Google Ads campaign spend"},
			Output: ExampleOutput{Code: "82101600", Title: "Broadcast advertising", Reasoning: "Paid online advertising"},
		},
	},
	"logistics": {
		{
			Input:  ExampleInput{Vendor: "FedEx", Description: "Courier shipment to client"},
			Output: ExampleOutput{Code: "78102200", Title: "Postal and small parcel and courier services", Reasoning: "Parcel courier"},
		},
	},
}

// DefaultRegistry returns a registry over the built-in catalog.
func DefaultRegistry(opts ...Option) *Registry {
	return NewRegistry(defaultSkills, defaultTaxonomy, defaultExamples, opts...)
}
