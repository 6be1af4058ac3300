package domain

var (
	BadgeTerraformer = Badge{Name: "Terraformer", Icon: "🌍", Color: "#4299e1"}
	BadgePioneer     = Badge{Name: "Pioneer", Icon: "🏆", Color: "#f6ad55"}
	BadgeMagnate     = Badge{Name: "Magnate", Icon: "💼", Color: "#9f7aea"}
	BadgeDruid       = Badge{Name: "Druid", Icon: "🌿", Color: "#48bb78"}
	BadgeMayor       = Badge{Name: "Mayor", Icon: "🏙️", Color: "#718096"}
	BadgeForester    = Badge{Name: "Forester", Icon: "🌲", Color: "#38a169"}
	BadgePolitician  = Badge{Name: "Politician", Icon: "🏛️", Color: "#e53e3e"}
	BadgeCollector   = Badge{Name: "Collector", Icon: "🃏", Color: "#d69e2e"}
)
