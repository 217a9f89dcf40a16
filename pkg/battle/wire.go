package battle

// Request and response bodies of the battle endpoints.

type SimulateRequest struct {
	Action   Action    `json:"action"`
	Attacker Combatant `json:"attacker"`
	Defender Combatant `json:"defender"`
}

type ComputerActionRequest struct {
	Computer Combatant `json:"computer_pokemon"`
	Player   Combatant `json:"player_pokemon"`
}

type RosterResponse struct {
	Pokemon []string `json:"pokemon"`
}
