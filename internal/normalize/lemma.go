package normalize

// irregularForms maps common irregular English inflections to the lemma a
// dictionary lemmatizer would return. Regular inflections are left to the
// stemmer.
//
// Agent nouns built on a doubled final consonant (runner, swimmer) are
// listed too: the stemmers stop at "runner", so without an entry they never
// share a term with the verb.
var irregularForms = map[string]string{
	// verbs
	"ran":        "run",
	"went":       "go",
	"gone":       "go",
	"was":        "be",
	"were":       "be",
	"been":       "be",
	"am":         "be",
	"is":         "be",
	"are":        "be",
	"had":        "have",
	"has":        "have",
	"did":        "do",
	"done":       "do",
	"does":       "do",
	"ate":        "eat",
	"eaten":      "eat",
	"took":       "take",
	"taken":      "take",
	"gave":       "give",
	"given":      "give",
	"came":       "come",
	"made":       "make",
	"knew":       "know",
	"known":      "know",
	"thought":    "think",
	"brought":    "bring",
	"bought":     "buy",
	"caught":     "catch",
	"taught":     "teach",
	"fought":     "fight",
	"sought":     "seek",
	"found":      "find",
	"told":       "tell",
	"sold":       "sell",
	"held":       "hold",
	"stood":      "stand",
	"understood": "understand",
	"wrote":      "write",
	"written":    "write",
	"spoke":      "speak",
	"spoken":     "speak",
	"broke":      "break",
	"broken":     "break",
	"chose":      "choose",
	"chosen":     "choose",
	"drove":      "drive",
	"driven":     "drive",
	"rode":       "ride",
	"ridden":     "ride",
	"flew":       "fly",
	"flown":      "fly",
	"grew":       "grow",
	"grown":      "grow",
	"drew":       "draw",
	"drawn":      "draw",
	"threw":      "throw",
	"thrown":     "throw",
	"began":      "begin",
	"begun":      "begin",
	"sang":       "sing",
	"sung":       "sing",
	"swam":       "swim",
	"swum":       "swim",
	"drank":      "drink",
	"drunk":      "drink",
	"fallen":     "fall",
	"kept":       "keep",
	"lost":       "lose",
	"paid":       "pay",
	"said":       "say",
	"sent":       "send",
	"slept":      "sleep",
	"spent":      "spend",
	"won":        "win",
	"wore":       "wear",
	"worn":       "wear",
	"forgot":     "forget",
	"forgotten":  "forget",
	"got":        "get",
	"gotten":     "get",
	"led":        "lead",
	"meant":      "mean",
	"built":      "build",
	"heard":      "hear",
	"hid":        "hide",
	"hidden":     "hide",

	// nouns
	"mice":      "mouse",
	"geese":     "goose",
	"feet":      "foot",
	"teeth":     "tooth",
	"men":       "man",
	"women":     "woman",
	"children":  "child",
	"people":    "person",
	"oxen":      "ox",
	"lice":      "louse",
	"criteria":  "criterion",
	"phenomena": "phenomenon",
	"indices":   "index",
	"matrices":  "matrix",
	"analyses":  "analysis",
	"theses":    "thesis",

	// agent nouns
	"runner":    "run",
	"runners":   "run",
	"swimmer":   "swim",
	"swimmers":  "swim",
	"winner":    "win",
	"winners":   "win",
	"beginner":  "begin",
	"beginners": "begin",
	"spinner":   "spin",
	"spinners":  "spin",
	"jogger":    "jog",
	"joggers":   "jog",
	"shopper":   "shop",
	"shoppers":  "shop",
	"planner":   "plan",
	"planners":  "plan",
	"drummer":   "drum",
	"drummers":  "drum",
	"hitter":    "hit",
	"hitters":   "hit",

	// adjectives
	"better": "good",
	"best":   "good",
	"worse":  "bad",
	"worst":  "bad",
}
