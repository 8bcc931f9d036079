package sm2

// GradeFromEvaluation maps an external evaluation (correctness plus a [0,1]
// confidence) onto the 0..5 grade scale. responseTime is in seconds; pass a
// non-positive value when the latency is unknown.
//
// The mapping is monotonic in confidence: incorrect answers land on 0..2,
// correct answers on 3..5, with fast confident answers graded highest.
func GradeFromEvaluation(isCorrect bool, confidence float64, responseTime float64) Grade {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	if !isCorrect {
		switch {
		case confidence < 0.3:
			return Blackout
		case confidence < 0.6:
			return Incorrect
		default:
			return IncorrectEasy
		}
	}

	grade := Hesitant

	switch {
	case confidence >= 0.9:
		grade += 2
	case confidence >= 0.8:
		grade++
	}

	if responseTime > 0 {
		switch {
		case responseTime <= 3.0:
			grade++
		case responseTime > 6.0:
			grade--
		}
	}

	// Correct answers never drop below the pass threshold.
	if grade < Hesitant {
		grade = Hesitant
	}
	if grade > Perfect {
		grade = Perfect
	}
	return grade
}
