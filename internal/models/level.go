package models

type Level string

const (
	LevelSeedling Level = "seedling"
	LevelSapling  Level = "sapling"
	LevelOak      Level = "oak"
	LevelChampion Level = "champion"
)

// Lower bounds of each tier above seedling.
const (
	SaplingMinPoints  = 51
	OakMinPoints      = 151
	ChampionMinPoints = 301
)

// LevelForPoints maps an ecoPoints total onto the level ladder.
func LevelForPoints(points int) Level {
	switch {
	case points >= ChampionMinPoints:
		return LevelChampion
	case points >= OakMinPoints:
		return LevelOak
	case points >= SaplingMinPoints:
		return LevelSapling
	default:
		return LevelSeedling
	}
}
