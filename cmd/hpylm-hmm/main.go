// Command hpylm-hmm trains and evaluates a hierarchical Pitman-Yor
// HMM part-of-speech tagger.
package main

import "github.com/dbsmedya/hpylm-hmm/cmd/hpylm-hmm/cmd"

func main() {
	cmd.Execute()
}
