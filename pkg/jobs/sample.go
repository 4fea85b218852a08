package jobs

// samplePGN is a short miniature with a decisive tactic, used to seed development queues
const samplePGN = `[Event "Sample"]
[White "Legal"]
[Black "Saint Brie"]
[WhiteElo "1600"]
[BlackElo "1500"]
[Result "1-0"]

1. e4 e5 2. Nf3 d6 3. Bc4 Bg4 4. Nc3 g6 5. Nxe5 Bxd1 6. Bxf7+ Ke7 7. Nd5# 1-0
`

// Sample returns the development seed job
func Sample() Job {
	return Job{
		PGN:    samplePGN,
		UserID: "dev-user",
		SetID:  "dev-set",
	}
}
