// Package battle implements the deterministic combat math: the battle
// formula, scout skirmishes, travel time, loot capacity, and loyalty damage.
// Everything here is pure. Wherever a sum depends on iteration order, troop
// types are visited in ascending byte order of their names so that identical
// inputs always produce identical outputs.
package battle

import (
	"math"
	"sort"
	"time"

	"github.com/nat-prohmpiriya/travillian-games/pkg/catalog"
)

// Troops maps troop types to counts. Zero-count entries are treated as absent.
type Troops map[catalog.TroopType]int

// Total returns the number of units across all types.
func (t Troops) Total() int {
	n := 0
	for _, c := range t {
		n += c
	}
	return n
}

// Types returns the troop types present in t, in canonical ascending order.
func (t Troops) Types() []catalog.TroopType {
	types := make([]catalog.TroopType, 0, len(t))
	for tt, c := range t {
		if c > 0 {
			types = append(types, tt)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Clone returns a copy of t with zero-count entries dropped.
func (t Troops) Clone() Troops {
	out := make(Troops, len(t))
	for tt, c := range t {
		if c > 0 {
			out[tt] = c
		}
	}
	return out
}

// Merge returns the elementwise sum of t and other.
func (t Troops) Merge(other Troops) Troops {
	out := t.Clone()
	for tt, c := range other {
		if c > 0 {
			out[tt] += c
		}
	}
	return out
}

// Result is the outcome of a resolved battle.
type Result struct {
	AttackerWins      bool
	AttackerLosses    Troops
	DefenderLosses    Troops
	AttackerSurvivors Troops
	DefenderSurvivors Troops
}

// Resolve runs the battle formula. The winner is the side with the greater
// power; the loser is wiped out and the winner loses a (defense/attack)^1.5
// fraction, except that raiders on the losing side flee with at most 100% and
// at least 66% losses. An empty garrison falls without attacker losses.
func Resolve(attacker, defender Troops, roster catalog.Roster, mission catalog.Mission) Result {
	attackPower := AttackPower(attacker, roster)

	infAttack, cavAttack := attackByClass(attacker, roster)
	infantryRatio := 0.5
	if infAttack+cavAttack > 0 {
		infantryRatio = infAttack / (infAttack + cavAttack)
	}

	defensePower := DefensePower(defender, roster, infantryRatio)

	var attackerWins bool
	var attackerLossRatio, defenderLossRatio float64
	switch {
	case defensePower <= 0:
		attackerWins = true
	case attackPower > defensePower:
		attackerWins = true
		attackerLossRatio = math.Pow(defensePower/attackPower, 1.5)
		defenderLossRatio = 1.0
	default:
		ratio := attackPower / defensePower
		defenderLossRatio = math.Pow(ratio, 1.5)
		attackerLossRatio = 1.0
		if mission == catalog.MissionRaid {
			attackerLossRatio = math.Max(0.66, 1.0-ratio*0.5)
		}
	}

	attackerLosses := applyLosses(attacker, attackerLossRatio)
	defenderLosses := applyLosses(defender, defenderLossRatio)
	return Result{
		AttackerWins:      attackerWins,
		AttackerLosses:    attackerLosses,
		DefenderLosses:    defenderLosses,
		AttackerSurvivors: survivors(attacker, attackerLosses),
		DefenderSurvivors: survivors(defender, defenderLosses),
	}
}

// AttackPower returns the total offensive power of the troops.
func AttackPower(t Troops, roster catalog.Roster) float64 {
	power := 0.0
	for _, tt := range t.Types() {
		power += float64(roster[tt].Attack) * float64(t[tt])
	}
	return power
}

func attackByClass(t Troops, roster catalog.Roster) (infantry, cavalry float64) {
	for _, tt := range t.Types() {
		p := float64(roster[tt].Attack) * float64(t[tt])
		if tt.IsCavalry() {
			cavalry += p
		} else {
			infantry += p
		}
	}
	return infantry, cavalry
}

// DefensePower returns the garrison's defense against an attacking force whose
// offense is infantryRatio infantry. Each unit's two defense values are
// blended by that ratio.
func DefensePower(t Troops, roster catalog.Roster, infantryRatio float64) float64 {
	cavalryRatio := 1.0 - infantryRatio
	power := 0.0
	for _, tt := range t.Types() {
		stats := roster[tt]
		effective := float64(stats.DefenseInfantry)*infantryRatio + float64(stats.DefenseCavalry)*cavalryRatio
		power += effective * float64(t[tt])
	}
	return power
}

// applyLosses floors per-type losses, capped at the available count.
func applyLosses(t Troops, ratio float64) Troops {
	out := make(Troops)
	for _, tt := range t.Types() {
		loss := int(math.Floor(float64(t[tt]) * ratio))
		if loss > t[tt] {
			loss = t[tt]
		}
		if loss > 0 {
			out[tt] = loss
		}
	}
	return out
}

func survivors(t, losses Troops) Troops {
	out := make(Troops)
	for _, tt := range t.Types() {
		if left := t[tt] - losses[tt]; left > 0 {
			out[tt] = left
		}
	}
	return out
}

// Share splits a total loss proportionally onto one contingent of a combined
// garrison: ceil(total * part/whole), capped at part. Summed over contingents
// this can exceed total by rounding, which only ever over-kills, never
// resurrects.
func Share(total, part, whole int) int {
	if whole <= 0 || part <= 0 {
		return 0
	}
	share := int(math.Ceil(float64(total) * float64(part) / float64(whole)))
	if share > part {
		share = part
	}
	return share
}

// ScoutResult is the outcome of a scouting run.
type ScoutResult struct {
	Success        bool
	AttackerLosses int
	DefenderLosses int
}

// ResolveScout runs the scout skirmish. Scout power is speed times count; the
// attacker succeeds when its share of total power exceeds 0.4. With no
// defending scouts the run is perfect and lossless.
func ResolveScout(attacker, defender Troops, roster catalog.Roster) ScoutResult {
	attackerPower := ScoutPower(attacker, roster)
	defenderPower := ScoutPower(defender, roster)

	attackerRatio := 1.0
	if total := attackerPower + defenderPower; total > 0 {
		attackerRatio = attackerPower / total
	}
	success := attackerRatio > 0.4

	if defenderPower <= 0 {
		return ScoutResult{Success: success}
	}

	var attackerLossRatio, defenderLossRatio float64
	if success {
		attackerLossRatio = (1.0 - attackerRatio) * 0.8
		defenderLossRatio = attackerRatio * 0.5
	} else {
		attackerLossRatio = 0.9 + (1.0-attackerRatio)*0.1
		defenderLossRatio = 0.1
	}

	attackerCount := attacker.Total()
	defenderCount := defender.Total()
	attackerLost := int(math.Ceil(float64(attackerCount) * attackerLossRatio))
	defenderLost := int(math.Ceil(float64(defenderCount) * defenderLossRatio))
	if attackerLost > attackerCount {
		attackerLost = attackerCount
	}
	if defenderLost > defenderCount {
		defenderLost = defenderCount
	}
	return ScoutResult{Success: success, AttackerLosses: attackerLost, DefenderLosses: defenderLost}
}

// ScoutPower returns the scouting effectiveness of the troops.
func ScoutPower(t Troops, roster catalog.Roster) float64 {
	power := 0.0
	for _, tt := range t.Types() {
		power += float64(roster[tt].Speed) * float64(t[tt])
	}
	return power
}

// Distance returns the Euclidean distance between two map coordinates.
func Distance(fromX, fromY, toX, toY int) float64 {
	dx := float64(toX - fromX)
	dy := float64(toY - fromY)
	return math.Sqrt(dx*dx + dy*dy)
}

// defaultSpeed covers the degenerate case of an army with no known troops.
const defaultSpeed = 6

// TravelTime converts a distance into a march duration at the army's slowest
// unit speed (fields per hour). Never less than one minute.
func TravelTime(distance float64, t Troops, roster catalog.Roster) time.Duration {
	slowest := 0
	for _, tt := range t.Types() {
		speed := roster[tt].Speed
		if speed > 0 && (slowest == 0 || speed < slowest) {
			slowest = speed
		}
	}
	if slowest == 0 {
		slowest = defaultSpeed
	}
	seconds := int64(distance / float64(slowest) * 3600.0)
	if seconds < 60 {
		seconds = 60
	}
	return time.Duration(seconds) * time.Second
}

// CarryCapacity returns the total loot the troops can haul.
func CarryCapacity(t Troops, roster catalog.Roster) int {
	capacity := 0
	for _, tt := range t.Types() {
		capacity += roster[tt].CarryCapacity * t[tt]
	}
	return capacity
}

// Plunder computes what the surviving attackers steal from a village's stock.
// Raids take at most half of each resource, attacks take everything; either
// way the haul is scaled down proportionally to fit the carry capacity.
// Conquests and other missions take nothing.
func Plunder(stock catalog.Resources, survivors Troops, roster catalog.Roster, mission catalog.Mission) catalog.Resources {
	capacity := CarryCapacity(survivors, roster)
	if capacity <= 0 {
		return catalog.Resources{}
	}

	var percent float64
	switch mission {
	case catalog.MissionRaid:
		percent = 0.5
	case catalog.MissionAttack:
		percent = 1.0
	default:
		return catalog.Resources{}
	}

	available := stock.Scale(percent)
	total := available.Total()
	if total <= 0 {
		return catalog.Resources{}
	}

	factor := 1.0
	if total > capacity {
		factor = float64(capacity) / float64(total)
	}
	return available.Scale(factor)
}

// LoyaltyDamage sums the loyalty reduction of the surviving chiefs.
func LoyaltyDamage(survivors Troops, roster catalog.Roster) int {
	damage := 0
	for _, tt := range survivors.Types() {
		if tt.IsChief() {
			damage += roster[tt].LoyaltyReduction * survivors[tt]
		}
	}
	return damage
}
