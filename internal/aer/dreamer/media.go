package dreamer

import "github.com/aerlab/aerdctl/internal/aer"

// The 18 DREAMER film clips with the affective quadrant each stimulus
// targets. Quadrants follow the valence/arousal plane: amusement and
// excitement are high-arousal positive, fear/disgust/surprise high-arousal
// negative, anger and sadness low-arousal negative, happiness and calmness
// positive with low arousal.
var mediaNames = map[int]string{
	1:  "Searching for Bobby Fischer",
	2:  "D.O.A.",
	3:  "The Hangover",
	4:  "The Ring",
	5:  "300",
	6:  "National Lampoon's Van Wilder",
	7:  "Wall-E",
	8:  "Crash",
	9:  "My Girl",
	10: "The Fly",
	11: "Pride and Prejudice",
	12: "Modern Times",
	13: "Remember the Titans",
	14: "Gentleman's Agreement",
	15: "Psycho",
	16: "The Bourne Identity",
	17: "The Shawshank Redemption",
	18: "The Departed",
}

var expectedResponses = map[int]aer.Quadrant{
	1:  aer.QuadrantLAHV, // calmness
	2:  aer.QuadrantHALV, // surprise
	3:  aer.QuadrantHAHV, // amusement
	4:  aer.QuadrantHALV, // fear
	5:  aer.QuadrantHAHV, // excitement
	6:  aer.QuadrantHALV, // disgust
	7:  aer.QuadrantLAHV, // happiness
	8:  aer.QuadrantLALV, // anger
	9:  aer.QuadrantLALV, // sadness
	10: aer.QuadrantHALV, // disgust
	11: aer.QuadrantLAHV, // calmness
	12: aer.QuadrantHAHV, // amusement
	13: aer.QuadrantHAHV, // excitement
	14: aer.QuadrantLALV, // sadness
	15: aer.QuadrantHALV, // fear
	16: aer.QuadrantHAHV, // excitement
	17: aer.QuadrantLAHV, // happiness
	18: aer.QuadrantLALV, // anger
}
