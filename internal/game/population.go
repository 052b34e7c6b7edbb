package game

import "github.com/Fullann/Slither.io/internal/config"

// PopulationPlan is the number of bots to add or remove on one check.
// At most one of the two fields is non-zero.
type PopulationPlan struct {
	Spawn   int
	Despawn int
}

// PlanPopulation decides how to rebalance bots against humans so that
// humans+bots stays at or above MinPlayers and bots never exceed MaxBots.
// As humans arrive, bots are thinned toward Floor without dropping the total
// below MinPlayers.
func PlanPopulation(humans, bots int, bc config.BotsConfig) PopulationPlan {
	total := humans + bots

	if bots > bc.MaxBots {
		return PopulationPlan{Despawn: bots - bc.MaxBots}
	}

	if total < bc.MinPlayers {
		return PopulationPlan{Spawn: min(bc.MinPlayers-total, bc.MaxBots-bots)}
	}

	half := bc.MinPlayers / 2
	if humans > half && bots > bc.Floor {
		n := min(bots-bc.Floor, humans-half, total-bc.MinPlayers)
		if n > 0 {
			return PopulationPlan{Despawn: n}
		}
	}
	return PopulationPlan{}
}
