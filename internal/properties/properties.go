package properties

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	ModelFileName        = "modelo_rf_cienagas.json"
	DefaultGrpcPort      = 50051
	DefaultSampleSeed    = 42
	ClassificationSuffix = "_clasificacion.tif"
)

var GrpcPort int

type Color struct {
	R, G, B uint8
}

// ColorMap holds the preview colour of every class label.
var ColorMap = map[uint8]Color{
	0: {59, 76, 192},
	1: {180, 4, 38},
}

// LoadEnv loads the first .env file found among the given paths. Missing files are not an error.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		return godotenv.Load(p)
	}
	return nil
}

func RootPath() string {
	if root := os.Getenv("ROOT_PATH"); root != "" {
		return root
	}
	return "."
}

// ModelPath is the fixed location of the persisted ensemble.
func ModelPath() string {
	if p := os.Getenv("MODEL_PATH"); p != "" {
		return p
	}
	return filepath.Join(RootPath(), "data", "model", ModelFileName)
}

func LogLevel() string {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		return level
	}
	return "info"
}

func SampleSeed() uint64 {
	seed, err := strconv.ParseUint(os.Getenv("SAMPLE_SEED"), 10, 64)
	if err != nil {
		return DefaultSampleSeed
	}
	return seed
}

func Port() int {
	if GrpcPort != 0 {
		return GrpcPort
	}
	port, err := strconv.Atoi(os.Getenv("GRPC_PORT"))
	if err != nil || port <= 0 {
		return DefaultGrpcPort
	}
	return port
}

func DiscordErrorNotificationUrl() string {
	return os.Getenv("DISCORD_ERROR_NOTIFICATION_URL")
}

func DiscordSuccessNotificationUrl() string {
	return os.Getenv("DISCORD_SUCCESS_NOTIFICATION_URL")
}
