package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/toolbelt/internal"
	"codeberg.org/snonux/toolbelt/internal/logger"
	"codeberg.org/snonux/toolbelt/internal/services"
	"codeberg.org/snonux/toolbelt/internal/weather"
	"codeberg.org/snonux/toolbelt/internal/web"
)

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "toolbelt",
		Short: "Small single-purpose utilities as console commands and web apps",
		Long: `toolbelt bundles small independent utilities: text to speech,
translation, OCR with table export, job search, word clouds with
sentiment, weather, QR codes and YouTube downloads.

Each utility runs as a console command or as its own web app.

Examples:
  toolbelt serve tts --open          # Text to speech web app on :5000
  toolbelt serve                     # All web apps under one server
  toolbelt translate -i in.txt --to ja
  toolbelt ocr scan.pdf --xlsx table.xlsx
  toolbelt mcp                       # MCP tools over stdio`,
		Version:       internal.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up flags
	setupFlags(rootCmd, flags)

	rootCmd.AddCommand(
		newServeCommand(flags),
		newTTSCommand(flags),
		newSpeakCommand(flags),
		newTranslateCommand(flags),
		newOCRCommand(flags),
		newJobsCommand(flags),
		newWordCloudCommand(flags),
		newSentimentCommand(flags),
		newWeatherCommand(flags),
		newQRCommand(flags),
		newYouTubeCommand(flags),
		newModelsCommand(flags),
		newArchiveCommand(flags),
		newMCPCommand(flags),
		newConfigCommand(flags),
	)

	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	// Global flags
	cmd.PersistentFlags().StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.toolbelt.yaml)")
	cmd.PersistentFlags().StringVar(&flags.OutputDir, "output-dir", services.DefaultOutputDir(), "Directory for generated files")
	cmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&flags.LogFormat, "log-format", "text", "Log format: text or json")

	// Bind flags to viper
	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	viper.BindPFlag("output.directory", cmd.PersistentFlags().Lookup("output-dir"))
	viper.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", cmd.PersistentFlags().Lookup("log-format"))
}

// bindFlag binds one local flag of cmd to a config key
func bindFlag(cmd *cobra.Command, key, name string) {
	viper.BindPFlag(key, cmd.Flags().Lookup(name))
}

func newServeCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "serve [app]",
		Short:     "Run a web app, or all of them with \"all\"",
		Long:      "Run one web app at the server root, or every app under /<app> when app is \"all\" (the default).",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: append([]string{"all"}, web.AppNames...),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, args, flags)
		},
	}
	cmd.Flags().StringVar(&flags.Addr, "addr", flags.Addr, "Listen address")
	cmd.Flags().BoolVar(&flags.Open, "open", false, "Open the browser once the server is up")
	bindFlag(cmd, "server.addr", "addr")
	return cmd
}

func newTTSCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tts [text]",
		Short: "Convert text to an MP3 file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTTS(cmd, args, flags)
		},
	}
	cmd.Flags().StringVarP(&flags.Output, "output", "o", "", "Output file (default: a new file in the output directory)")
	cmd.Flags().StringVar(&flags.AudioProvider, "audio-provider", "", "Speech provider: openai or espeak")
	cmd.Flags().StringVar(&flags.OpenAIVoice, "openai-voice", "", "OpenAI voice: alloy, ash, coral, echo, fable, onyx, nova, sage, shimmer")
	bindFlag(cmd, "audio.provider", "audio-provider")
	bindFlag(cmd, "audio.openai_voice", "openai-voice")
	return cmd
}

func newSpeakCommand(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "speak",
		Short: "Interactive menu that speaks text aloud through espeak-ng",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSpeak(cmd, flags)
		},
	}
}

func newTranslateCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate [text]",
		Short: "Translate text, a file or a batch file",
		Long: `Translate text given as arguments, read from --input, or every line
of a --batch file. Batch lines are "text" or "text = target language".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args, flags)
		},
	}
	cmd.Flags().StringVarP(&flags.Input, "input", "i", "", "Input text file (UTF-8)")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&flags.From, "from", "auto", "Source language")
	cmd.Flags().StringVar(&flags.To, "to", flags.To, "Target language: 한국어, 영어, 일본어 or ko, en, ja")
	cmd.Flags().StringVar(&flags.BatchFile, "batch", "", "Translate every line of this file")
	return cmd
}

func newOCRCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ocr <file>",
		Short: "Extract text from an image or PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOCR(cmd, args, flags)
		},
	}
	cmd.Flags().StringVarP(&flags.Output, "output", "o", "", "Write the text to this file")
	cmd.Flags().StringVar(&flags.XLSXOut, "xlsx", "", "Parse the text as a table and write it to this workbook")
	return cmd
}

func newJobsCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs <keyword>",
		Short: "Search job postings on Incruit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobs(cmd, args, flags)
		},
	}
	cmd.Flags().IntVar(&flags.Pages, "pages", flags.Pages, "Result pages to fetch")
	cmd.Flags().StringVar(&flags.CSVOut, "csv", "", "Also write the postings to this CSV file")
	cmd.Flags().StringVar(&flags.Encoding, "encoding", flags.Encoding, "CSV encoding: cp949 or utf-8")
	bindFlag(cmd, "jobs.pages", "pages")
	bindFlag(cmd, "jobs.encoding", "encoding")
	return cmd
}

func newWordCloudCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wordcloud",
		Short: "Render a word cloud from a text file or a web page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWordCloud(cmd, flags)
		},
	}
	cmd.Flags().StringVar(&flags.TextFile, "file", "", "Text file (UTF-8 or CP949)")
	cmd.Flags().StringVar(&flags.URL, "url", "", "Web page to crawl")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", "", "Output PNG (default: a new file in the output directory)")
	cmd.Flags().StringVar(&flags.FontPath, "font", "", "TrueType/OpenType font, needed for Hangul")
	cmd.MarkFlagsMutuallyExclusive("file", "url")
	cmd.MarkFlagsOneRequired("file", "url")
	bindFlag(cmd, "wordcloud.font_path", "font")
	return cmd
}

func newSentimentCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sentiment [text]",
		Short: "Score the sentiment of text",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSentiment(cmd, args, flags)
		},
	}
	cmd.Flags().StringVarP(&flags.Input, "input", "i", "", "Read the text from this file")
	return cmd
}

func newWeatherCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weather",
		Short: "Show the current weather",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWeather(cmd, flags)
		},
	}
	cmd.Flags().Float64Var(&flags.Lat, "lat", weather.DefaultLat, "Latitude")
	cmd.Flags().Float64Var(&flags.Lon, "lon", weather.DefaultLon, "Longitude")
	cmd.Flags().StringVar(&flags.Name, "name", weather.DefaultName, "Place name shown in the heading")
	return cmd
}

func newQRCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qr <text>",
		Short: "Encode text as a QR code PNG",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQR(cmd, args, flags)
		},
	}
	cmd.Flags().StringVarP(&flags.Output, "output", "o", "", "Output PNG (default: a new file in the output directory)")
	cmd.Flags().IntVar(&flags.QRSize, "size", flags.QRSize, "Edge length in pixels")
	return cmd
}

func newYouTubeCommand(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "youtube [url]",
		Short: "Download the audio and video streams of a YouTube video",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runYouTube(cmd, args, flags)
		},
	}
}

func newModelsCommand(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List available OpenAI models for the current API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModels(cmd)
		},
	}
}

func newArchiveCommand(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "archive [app]",
		Short: "Move generated files into the archive directory",
		Long:  "Archive the files of one app, or the whole output directory when no app is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchive(cmd, args)
		},
	}
}

func newMCPCommand(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the utilities as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd)
		},
	}
}

func newConfigCommand(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(cmd)
		},
	}
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".toolbelt" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".toolbelt")
	}

	// Environment variables
	viper.SetEnvPrefix("TOOLBELT")
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// GetOpenAIKey retrieves the OpenAI API key from environment or config
func GetOpenAIKey() string {
	return keyFrom("OPENAI_API_KEY", "keys.openai")
}

// GetGeminiKey retrieves the Gemini API key from environment or config
func GetGeminiKey() string {
	return keyFrom("GEMINI_API_KEY", "keys.gemini")
}

// GetWeatherKey retrieves the OpenWeatherMap API key from environment or config
func GetWeatherKey() string {
	return keyFrom("OPENWEATHER_API_KEY", "keys.openweather")
}

func keyFrom(env, configKey string) string {
	// First check environment variable
	if key := os.Getenv(env); key != "" {
		return key
	}

	// Then check config file
	return viper.GetString(configKey)
}

// LoadSettings reads the effective settings and resolves the API keys
func LoadSettings() (*services.Settings, error) {
	s, err := services.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	s.Keys = services.Keys{
		OpenAI:  GetOpenAIKey(),
		Gemini:  GetGeminiKey(),
		Weather: GetWeatherKey(),
	}
	return s, nil
}

// SetupLogging installs the global logger from the configuration
func SetupLogging() (func() error, error) {
	s, err := LoadSettings()
	if err != nil {
		return nil, err
	}
	return logger.Setup(s.LoggerConfig())
}
