// Command yantram drives a simulated smart bulb from the openness of a hand
// seen by the camera.
package main

func main() {
	Execute()
}
