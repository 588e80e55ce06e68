package main

import (
	"os"

	"github.com/gin-gonic/gin"

	"github.com/JonathanSaleh123/boss-hunter/internal/api"
	"github.com/JonathanSaleh123/boss-hunter/internal/charactergen"
	"github.com/JonathanSaleh123/boss-hunter/internal/config"
	"github.com/JonathanSaleh123/boss-hunter/internal/constants"
	"github.com/JonathanSaleh123/boss-hunter/internal/logging"
	"github.com/JonathanSaleh123/boss-hunter/internal/registry"
	"github.com/JonathanSaleh123/boss-hunter/internal/session"
	"github.com/JonathanSaleh123/boss-hunter/internal/storage"
	"github.com/JonathanSaleh123/boss-hunter/internal/ws"
)

func main() {
	// Path may be provided via BOSS_HUNTER_CONFIG or defaults to
	// ./boss_hunter_config.json in the current working directory.
	configPath := os.Getenv(constants.EnvConfigPath)
	if configPath == "" {
		configPath = "./boss_hunter_config.json"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logging.Fatal("Missing or invalid boss hunter configuration", err, logging.Fields{
			"config_path": configPath,
			"hint":        "create a boss_hunter_config.json with a 'boss' object (name,max_health,attack,defense) and optional keys: round_timer_seconds, max_players_per_room, chat_log_capacity, server.address, character_prompt, image_prompt",
		})
	}

	if cfg.CharacterPromptTemplate != "" {
		charactergen.SetPromptTemplate(cfg.CharacterPromptTemplate)
	}
	if cfg.ImagePromptTemplate != "" {
		charactergen.SetImagePromptTemplate(cfg.ImagePromptTemplate)
	}
	if !charactergen.IsConfigured() {
		logging.Warn("character generation disabled", logging.Fields{
			"hint": "set " + constants.EnvOpenAIAPIKey + " to enable POST " + constants.RouteAPIPrefix + constants.RouteCharacters,
		})
	}

	// Allow the DB path to be configured via BOSS_HUNTER_DB. Default to a
	// data/ directory for local development.
	dbPath := os.Getenv(constants.EnvDatabasePath)
	if dbPath == "" {
		dbPath = "./data/boss_hunter.db"
	}
	db, err := storage.OpenAndMigrate(dbPath)
	if err != nil {
		logging.Fatal("Failed to initialize database", err, nil)
	}
	repo := storage.NewSQLiteRepository(db)

	gateway := ws.NewGateway()
	rooms := registry.New(session.Config{
		Boss:        cfg.Boss,
		RoundTimer:  cfg.RoundTimer,
		MaxPlayers:  cfg.MaxPlayersPerRoom,
		LogCapacity: cfg.ChatLogCapacity,
	}, gateway, repo)
	defer rooms.StopAll()

	wsHandler := ws.NewHandler(gateway, rooms)
	handler := api.NewHandler(repo, rooms)

	router := gin.Default()

	apiRoutes := router.Group(constants.RouteAPIPrefix)
	{
		apiRoutes.GET(constants.RouteVersion, api.Version)
		apiRoutes.GET(constants.RouteRooms, handler.ListRooms)
		apiRoutes.GET(constants.RouteBattles, handler.GetRecentBattles)
		apiRoutes.GET(constants.RouteLeaderboard, handler.GetLeaderboard)
		apiRoutes.POST(constants.RouteCharacters, handler.GenerateCharacter)
		apiRoutes.GET(constants.RouteCharacterImage, handler.GetCharacterImage)
	}
	router.GET(constants.RouteWebsocket, wsHandler.Serve)

	addr := cfg.ServerAddress
	logging.Info("Server started", logging.Fields{constants.LogFieldAddr: addr})
	if err := router.Run(addr); err != nil {
		logging.Fatal("Failed to start server", err, nil)
	}
}
