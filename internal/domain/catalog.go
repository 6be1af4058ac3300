package domain

const DefaultMap = "THARSIS"

var Maps = []string{
	"THARSIS",
	"HELLAS",
	"ELYSIUM",
	"VASTITAS BOREALIS",
	"UTOPIA PLANITIA",
	"TERRA CIMERIA",
}

var Colonies = []string{
	"Callisto",
	"Triton",
	"Miranda",
	"Ganymede",
	"Europa",
	"Pluto",
	"Enceladus",
	"Ceres",
	"Luna",
	"Io",
	"Titan",
}

var Corporations = []string{
	"Aphrodite",
	"Arcadian Communities",
	"Aridor",
	"Arklight",
	"Astrodrill Enterprise",
	"Celestic",
	"Cheung Shing Mars",
	"Credicor",
	"Ecoline",
	"Ecotec",
	"Factorum",
	"Helion",
	"Interplanetary Cinematics",
	"Inventrix",
	"Kuiper Cooperative",
	"Lakefront Resorts",
	"Manutech",
	"Mining Guild",
	"Mons Insurance",
	"MSI",
	"Nirgal Enterprises",
	"Palladin Shipping",
	"Pharmacy Union",
	"Philares",
	"Phoblog",
	"Point Luna",
	"Polyphemos",
	"Poseidon",
	"Pristar",
	"Recyclon",
	"Robinson Industries",
	"Sagitta Frontier Services",
	"Saturn Systems",
	"Septem Tribus",
	"Spire",
	"Splice",
	"Stormcraft",
	"Teractor",
	"Terralabs",
	"Tharsis Republic",
	"Thorgate",
	"Tycho Magnetics",
	"UNMI",
	"Utopia Invest",
	"Valley Trust",
	"Viron",
	"Vitor",
}
