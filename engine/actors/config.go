package actors

import (
	"os"

	"github.com/spf13/viper"
	"sealbox/engine/library"
)

// KindChatMessage is the unsigned rumor kind for a plaintext DM.
const KindChatMessage int = 14
const KindReaction int = 7
const KindSeal int = 13
const KindGiftWrap int = 1059
const KindInboxRelays int = 10050

// InitConfig sets up our Viper config object
func InitConfig(config *viper.Viper) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		library.LogCLI(err.Error(), 0)
	}
	config.SetDefault("rootDir", homeDir+"/sealbox/")
	config.SetConfigType("yaml")
	config.SetConfigFile(config.GetString("rootDir") + "config.yaml")
	err = config.ReadInConfig()
	if err != nil {
		library.LogCLI(err.Error(), 4)
	}
	config.SetDefault("firstRun", true)
	config.SetDefault("flatFileDir", "data/")
	config.SetDefault("logLevel", 4)
	config.SetDefault("doNotPublish", false)
	config.SetDefault("offline", false)

	//where we look for someone's wraps when they haven't published a kind 10050 relay list
	config.SetDefault("fallbackRelay", "wss://relay.damus.io")
	config.SetDefault("publishTimeoutSeconds", int64(10))

	//"flatfile" or "redis"; redis needs redisURL
	config.SetDefault("cacheBackend", "flatfile")
	config.SetDefault("redisURL", "redis://127.0.0.1:6379/0")

	// Create our working directory and config file if not exist
	initRootDir(config)
	library.Touch(config.GetString("rootDir") + "config.yaml")
	err = config.WriteConfig()
	if err != nil {
		library.LogCLI(err.Error(), 0)
	}
}

func initRootDir(conf *viper.Viper) {
	_, err := os.Stat(conf.GetString("rootDir"))
	if os.IsNotExist(err) {
		err = os.Mkdir(conf.GetString("rootDir"), 0755)
		if err != nil {
			library.LogCLI(err, 0)
		}
	}
}

var conf *viper.Viper

func MakeOrGetConfig() *viper.Viper {
	if conf == nil {
		conf = viper.New()
		InitConfig(conf)
	}
	return conf
}

func SetConfig(config *viper.Viper) {
	conf = config
}
