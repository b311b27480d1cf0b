package cmd

import (
	"fmt"
	"io"
	"math"

	"dicebank/domain/entities"
	"dicebank/domain/interfaces"
	"dicebank/domain/services"
)

// Chi-squared critical values at 95% confidence
const (
	chiSquaredCritical1DF = 3.84
	chiSquaredCritical5DF = 11.07
)

// fairnessStake is the duel stake used for the expected value estimate
const fairnessStake = 1000

// FairnessReport summarizes a simulation of the game outcome source
type FairnessReport struct {
	Trials int

	// Die faces 1..6
	FaceCounts        [6]int
	FaceChiSquared    float64
	DiceUniform       bool
	TieRate           float64
	CreatorWinRate    float64
	DuelExpectedValue float64 // per game for one side at fairnessStake, after commission

	// Raffle with a 3:1 entry split
	RaffleExpectedRate float64
	RaffleActualRate   float64
	RaffleChiSquared   float64
	RaffleProportional bool
}

// AnalyzeFairness simulates trials die rolls, duels and raffle draws against src
func AnalyzeFairness(src interfaces.RandomSource, trials int) (*FairnessReport, error) {
	if trials <= 0 {
		return nil, fmt.Errorf("trials must be positive, got %d", trials)
	}
	report := &FairnessReport{Trials: trials}

	var ties, decided, creatorWins int
	for i := 0; i < trials; i++ {
		creator, err := src.RollDie()
		if err != nil {
			return nil, err
		}
		opponent, err := src.RollDie()
		if err != nil {
			return nil, err
		}
		if creator < 1 || creator > 6 || opponent < 1 || opponent > 6 {
			return nil, fmt.Errorf("random source produced out of range rolls %d and %d", creator, opponent)
		}
		report.FaceCounts[creator-1]++

		switch {
		case creator == opponent:
			ties++
		case creator > opponent:
			creatorWins++
			decided++
		default:
			decided++
		}
	}

	expectedPerFace := float64(trials) / 6
	for _, count := range report.FaceCounts {
		report.FaceChiSquared += math.Pow(float64(count)-expectedPerFace, 2) / expectedPerFace
	}
	report.DiceUniform = report.FaceChiSquared < chiSquaredCritical5DF
	report.TieRate = float64(ties) / float64(trials)
	if decided > 0 {
		report.CreatorWinRate = float64(creatorWins) / float64(decided)
	}

	// Ties are rerolled, so each decided duel pays out once
	settlement := entities.SettleBank(2 * fairnessStake)
	gain := float64(settlement.Prize - fairnessStake)
	report.DuelExpectedValue = report.CreatorWinRate*gain - (1-report.CreatorWinRate)*fairnessStake

	// User 1 holds three of four entries
	bets := []entities.RaffleBet{
		{Sequence: 1, UserID: 1, Amount: 10},
		{Sequence: 2, UserID: 2, Amount: 10},
		{Sequence: 3, UserID: 1, Amount: 10},
		{Sequence: 4, UserID: 1, Amount: 10},
	}
	report.RaffleExpectedRate = 0.75

	var raffleWins int
	for i := 0; i < trials; i++ {
		bet, err := services.WeightedPick(src, bets)
		if err != nil {
			return nil, err
		}
		if bet.UserID == 1 {
			raffleWins++
		}
	}
	report.RaffleActualRate = float64(raffleWins) / float64(trials)

	expectedWins := float64(trials) * report.RaffleExpectedRate
	expectedLosses := float64(trials) - expectedWins
	report.RaffleChiSquared = math.Pow(float64(raffleWins)-expectedWins, 2)/expectedWins +
		math.Pow(float64(trials-raffleWins)-expectedLosses, 2)/expectedLosses
	report.RaffleProportional = report.RaffleChiSquared < chiSquaredCritical1DF

	return report, nil
}

// Print writes the report in a human readable form
func (r *FairnessReport) Print(w io.Writer) {
	fmt.Fprintf(w, "=== Dicebank fairness analysis (%d trials) ===\n\n", r.Trials)

	fmt.Fprintln(w, "Die faces:")
	expected := float64(r.Trials) / 6
	for face, count := range r.FaceCounts {
		fmt.Fprintf(w, "  %d: %7d (%+5.2f%%)\n", face+1, count, (float64(count)-expected)/expected*100)
	}
	fmt.Fprintf(w, "  chi-squared: %.2f (< %.2f expected) %s\n\n", r.FaceChiSquared, chiSquaredCritical5DF, verdict(r.DiceUniform))

	fmt.Fprintln(w, "Duels:")
	fmt.Fprintf(w, "  tie rate:         %.4f (1/6 expected, ties are rerolled)\n", r.TieRate)
	fmt.Fprintf(w, "  creator win rate: %.4f (0.5 expected)\n", r.CreatorWinRate)
	fmt.Fprintf(w, "  expected value:   %.2f per %d stake (commission %d%% of the bank)\n\n",
		r.DuelExpectedValue, fairnessStake, entities.CommissionPercent)

	fmt.Fprintln(w, "Raffle (3 of 4 entries):")
	fmt.Fprintf(w, "  win rate:    %.4f (%.2f expected)\n", r.RaffleActualRate, r.RaffleExpectedRate)
	fmt.Fprintf(w, "  chi-squared: %.2f (< %.2f expected) %s\n", r.RaffleChiSquared, chiSquaredCritical1DF, verdict(r.RaffleProportional))
}

func verdict(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}
