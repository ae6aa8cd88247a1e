// Package orchestrator connects the provisioning tools to the container layer that
// runs the devnet: it renders the compose document describing one service per node
// and restarts a node's service after its API key was rotated.
package orchestrator
