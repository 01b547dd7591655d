// Command rapport plays, serves and inspects social-skills practice dialogues.
package main

func main() {
	Execute()
}
