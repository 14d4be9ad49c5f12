// Package audio holds synthesized PCM clips and plays them through oto/v3.
package audio
