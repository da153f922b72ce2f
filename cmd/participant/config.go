package main

type Config struct {
	ServerURL string `env:"BOARD_SERVER_URL,default=ws://localhost:8080"`
	Name      string `env:"PARTICIPANT_NAME,required=true"`
	LogLevel  string `env:"LOG_LEVEL,required=true"`
}
