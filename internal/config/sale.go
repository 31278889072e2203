package config

import "time"

type Sale struct {
	// Seller payment details.
	UPIID       string `env:"SALE_UPI_ID,required,notEmpty"`
	PhoneNumber string `env:"SALE_PHONE_NUMBER,required,notEmpty"`
	QRImagePath string `env:"SALE_QR_IMAGE_PATH" envDefault:"qr.png"`

	// Pricing.
	StartingPrice int `env:"SALE_STARTING_PRICE" envDefault:"30" validate:"gte=0"`
	PriceDrop     int `env:"SALE_PRICE_DROP" envDefault:"5" validate:"gte=0"`

	// Negotiation.
	EnableNegotiation bool `env:"SALE_ENABLE_NEGOTIATION" envDefault:"false"`
	NegotiationMargin int  `env:"SALE_NEGOTIATION_MARGIN" envDefault:"5" validate:"gte=0"`

	// Buyer timers.
	BuyerInactivity time.Duration `env:"SALE_BUYER_INACTIVITY" envDefault:"3m"`
	BuyerWarning    time.Duration `env:"SALE_BUYER_WARNING" envDefault:"30s"`

	// Run defaults, overridable from the menu.
	DefaultMeal        string `env:"SALE_DEFAULT_MEAL" envDefault:"breakfast"`
	DefaultMess        string `env:"SALE_DEFAULT_MESS" envDefault:"Palash"`
	DefaultNumMessages int    `env:"SALE_NUM_MESSAGES" envDefault:"4" validate:"gte=1"`

	MessNames []string `env:"SALE_MESS_NAMES" envSeparator:","`

	// Keyword lists for inbound message classification. Empty env
	// values fall back to the built-in lists below.
	BuyerKeywords []string `env:"SALE_BUYER_KEYWORDS" envSeparator:","`
	DoneKeywords  []string `env:"SALE_DONE_KEYWORDS" envSeparator:","`
}

//nolint:gochecknoglobals
var defaultBuyerKeywords = []string{
	"buy", "want", "wants", "available", "available?",
	"interested", "need", "qr", "breakfast",
	"still", "selling", "sold?", "price",
	"how much", "take", "wanna",
	// Hinglish.
	"kharidna", "chahiye", "dedo", "dega", "dede", "bechna",
	"kitne", "kitna", "chaiye", "lelo", "bech",
}

//nolint:gochecknoglobals
var defaultDoneKeywords = []string{
	"done", "paid", "sent", "payment done",
	"transferred", "completed", "successful",
	"money sent", "confirm", "confirmed",
	"pay kiya", "pay kar diya", "paid bro",
	// Hinglish.
	"ho gaya", "hogaya", "kar diya", "kardiya",
	"bhej diya", "bhejdiya", "de diya", "dediya",
	"krdiya", "hogya", "krdya", "bhejdia",
	"payment hogaya", "payment hogya",
}

//nolint:gochecknoglobals
var defaultMessNames = []string{"Palash", "Kadamba Veg", "Kadamba NV", "Yuktahar"}

func (s *Sale) applyDefaults() {
	if len(s.BuyerKeywords) == 0 {
		s.BuyerKeywords = defaultBuyerKeywords
	}

	if len(s.DoneKeywords) == 0 {
		s.DoneKeywords = defaultDoneKeywords
	}

	if len(s.MessNames) == 0 {
		s.MessNames = defaultMessNames
	}
}
