package identity

// smallCaps maps the Unicode small-capital letters commonly used in stylized
// Instagram display names back to their ASCII counterparts. Static lookup
// data, initialized once per process.
var smallCaps = map[rune]rune{
	'ᴀ': 'a', // ᴀ
	'ʙ': 'b', // ʙ
	'ᴄ': 'c', // ᴄ
	'ᴅ': 'd', // ᴅ
	'ᴇ': 'e', // ᴇ
	'ꜰ': 'f', // ꜰ
	'ɢ': 'g', // ɢ
	'ʜ': 'h', // ʜ
	'ɪ': 'i', // ɪ
	'ᴊ': 'j', // ᴊ
	'ᴋ': 'k', // ᴋ
	'ʟ': 'l', // ʟ
	'ᴍ': 'm', // ᴍ
	'ɴ': 'n', // ɴ
	'ᴏ': 'o', // ᴏ
	'ᴘ': 'p', // ᴘ
	'ǫ': 'q', // ǫ
	'ʀ': 'r', // ʀ
	'ꜱ': 's', // ꜱ
	'ᴛ': 't', // ᴛ
	'ᴜ': 'u', // ᴜ
	'ᴠ': 'v', // ᴠ
	'ᴡ': 'w', // ᴡ
	'ʏ': 'y', // ʏ
	'ᴢ': 'z', // ᴢ
}

// commonNames is the dictionary used by the compound-username splitter.
// Lowercase given names and surnames that show up often enough in handles
// like "johndoe" or "annasmith" to anchor a split.
var commonNames = map[string]struct{}{}

func init() {
	for _, name := range []string{
		// given names
		"james", "john", "robert", "michael", "william", "david", "richard",
		"joseph", "thomas", "charles", "daniel", "matthew", "anthony", "mark",
		"donald", "steven", "paul", "andrew", "joshua", "kenneth", "kevin",
		"brian", "george", "timothy", "ronald", "jason", "edward", "jeffrey",
		"ryan", "jacob", "gary", "nicholas", "eric", "jonathan", "stephen",
		"larry", "justin", "scott", "brandon", "benjamin", "samuel", "gregory",
		"alexander", "patrick", "frank", "raymond", "jack", "dennis", "jerry",
		"tyler", "aaron", "jose", "adam", "nathan", "henry", "peter", "zachary",
		"oscar", "oliver", "leo", "luca", "noah", "liam", "lucas", "felix",
		"max", "tom", "tim", "ben", "sam", "dan", "jan", "nils", "finn",
		"lars", "sven", "erik", "karl", "hans", "otto", "paolo", "marco",
		"mario", "luigi", "pedro", "diego", "pablo", "juan", "carlos", "luis",
		"miguel", "ivan", "igor", "boris", "dmitri", "sergei", "andrei",
		"mary", "patricia", "jennifer", "linda", "elizabeth", "barbara",
		"susan", "jessica", "sarah", "karen", "nancy", "lisa", "betty",
		"margaret", "sandra", "ashley", "kimberly", "emily", "donna",
		"michelle", "dorothy", "carol", "amanda", "melissa", "deborah",
		"stephanie", "rebecca", "sharon", "laura", "cynthia", "kathleen",
		"amy", "angela", "shirley", "anna", "ruth", "brenda", "pamela",
		"nicole", "katherine", "samantha", "christine", "emma", "catherine",
		"virginia", "rachel", "carolyn", "janet", "maria", "heather", "diane",
		"julie", "joyce", "victoria", "kelly", "christina", "lauren", "joan",
		"olivia", "sophia", "mia", "ella", "lena", "nina", "vera", "clara",
		"alice", "julia", "eva", "ida", "lea", "zoe", "jane", "kate", "lucy",
		"grace", "chloe", "hannah", "sofia", "elena", "irina", "olga",
		"natasha", "tanya", "katya",
		// surnames
		"smith", "johnson", "williams", "brown", "jones", "garcia", "miller",
		"davis", "rodriguez", "martinez", "hernandez", "lopez", "gonzalez",
		"wilson", "anderson", "taylor", "moore", "jackson", "martin", "lee",
		"perez", "thompson", "white", "harris", "sanchez", "clark", "ramirez",
		"lewis", "robinson", "walker", "young", "allen", "king", "wright",
		"torres", "nguyen", "hill", "flores", "green", "adams", "nelson",
		"baker", "hall", "rivera", "campbell", "mitchell", "carter", "roberts",
		"gomez", "phillips", "evans", "turner", "diaz", "parker", "cruz",
		"edwards", "collins", "reyes", "stewart", "morris", "morales",
		"murphy", "cook", "rogers", "gutierrez", "ortiz", "morgan", "cooper",
		"peterson", "bailey", "reed", "kelly", "howard", "ramos", "kim",
		"cox", "ward", "richardson", "watson", "brooks", "chavez", "wood",
		"james", "bennett", "gray", "mendoza", "ruiz", "hughes", "price",
		"alvarez", "castillo", "sanders", "patel", "myers", "long", "ross",
		"foster", "jimenez", "doe", "mueller", "schmidt", "schneider",
		"fischer", "weber", "meyer", "wagner", "becker", "hoffmann", "koch",
		"richter", "wolf", "ivanov", "petrov", "sokolov", "popov", "kuznetsov",
		"rossi", "russo", "ferrari", "esposito", "bianchi", "romano",
		"chen", "wang", "li", "zhang", "liu", "yang", "wu", "singh", "kumar",
		"sharma", "khan", "ali", "ahmed", "hassan", "tanaka", "suzuki",
		"takahashi", "watanabe", "sato", "park", "choi", "kang",
	} {
		commonNames[name] = struct{}{}
	}
}

func isKnownName(token string) bool {
	_, ok := commonNames[token]
	return ok
}

func isVowel(ch byte) bool {
	switch ch {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}
