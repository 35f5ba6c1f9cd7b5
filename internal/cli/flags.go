package cli

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile   string
	OutputDir string
	LogLevel  string
	LogFormat string

	// serve
	Addr string
	Open bool

	// Shared by the commands that write a single file
	Output string
	Input  string

	// translate
	From      string
	To        string
	BatchFile string

	// tts
	AudioProvider string
	OpenAIVoice   string

	// ocr
	XLSXOut string

	// jobs
	Pages    int
	CSVOut   string
	Encoding string

	// wordcloud
	TextFile string
	URL      string
	FontPath string

	// weather
	Lat  float64
	Lon  float64
	Name string

	// qr
	QRSize int
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		Addr:     ":5000",
		LogLevel: "info",
		To:       "ko",
		Pages:    2,
		Encoding: "cp949",
		QRSize:   256,
	}
}
