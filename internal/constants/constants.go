package constants

// Centralized constants for env keys, routes and OpenAI integration.
const (
	// Environment variable keys
	EnvConfigPath   = "BOSS_HUNTER_CONFIG"
	EnvDatabasePath = "BOSS_HUNTER_DB"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"

	// HTTP headers and content types
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"

	ContentTypeJSON = "application/json"
	ContentTypePNG  = "image/png"

	CacheControlHeader  = "Cache-Control"
	CacheControlNoCache = "no-cache"

	// Authorization prefix
	BearerPrefix = "Bearer "

	// OpenAI API endpoints and base URL
	OpenAIBaseURL               = "https://api.openai.com"
	OpenAIChatCompletionsPath   = "/v1/chat/completions"
	OpenAIImagesGenerationsPath = "/v1/images/generations"

	// OpenAI model names used for character sheet and portrait generation
	OpenAIChatModel  = "gpt-4o-mini"
	OpenAIImageModel = "gpt-image-1"

	OpenAIImageSizeDefault    = "1024x1024"
	OpenAIImageQualityDefault = "low"
)

// Routes used by the backend router
const (
	RouteAPIPrefix      = "/api"
	RouteVersion        = "/version"
	RouteRooms          = "/rooms"
	RouteBattles        = "/battles"
	RouteLeaderboard    = "/leaderboard"
	RouteCharacters     = "/characters"
	RouteCharacterImage = "/characters/image"

	RouteWebsocket = "/ws/:roomID"
)

// Common JSON response keys
const (
	JSONKeyError   = "error"
	JSONKeyMessage = "message"
)

// Common log field names
const (
	LogFieldRoomID   = "room_id"
	LogFieldPlayerID = "player_id"
	LogFieldConnID   = "conn_id"
	LogFieldState    = "state"
	LogFieldEpoch    = "epoch"
	LogFieldAddr     = "addr"
	LogFieldKey      = "key"
	LogFieldName     = "name"
	LogFieldSource   = "source"
	LogFieldOutcome  = "outcome"
)

// Error message strings returned by API handlers.
const (
	ErrInvalidRequest    = "Invalid request"
	ErrInvalidRoomID     = "Invalid room id"
	ErrCharacterGenOff   = "Character generation is not configured"
	ErrFailedGenerate    = "Failed to generate character"
	ErrFailedImage       = "Failed to generate character portrait"
	ErrFailedListBattles = "Failed to list battles"
	ErrFailedLeaderboard = "Failed to load leaderboard"
)
