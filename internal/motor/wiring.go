package motor

const (
	MotorCount  = 4
	OutputCount = 8
	ServoCount  = 2
	MaxSpeed    = 255
)

// Motor n is driven by latch bits latchBits[2n] and latchBits[2n+1]; output n
// in single-pin mode is latch bit latchBits[n].
var latchBits = [OutputCount]int{2, 3, 1, 4, 5, 7, 0, 6}

// Enable/speed line of each motor.
var pwmPins = [MotorCount]int{11, 3, 6, 5}

var servoPins = [ServoCount]int{10, 9}

// LatchBits returns the latch bit of every output.
func LatchBits() [OutputCount]int { return latchBits }

// PWMPins returns the enable pin of every motor.
func PWMPins() [MotorCount]int { return pwmPins }

// ServoPins returns the servo header pins. They are not driven here.
func ServoPins() [ServoCount]int { return servoPins }

// ServoPin returns the header pin of servo i.
func ServoPin(i int) (int, bool) {
	if i < 0 || i >= ServoCount {
		return 0, false
	}
	return servoPins[i], true
}

func validMotor(n int) bool  { return n&^0x03 == 0 }
func validOutput(n int) bool { return n&^0x07 == 0 }
func validSpeed(s int) bool  { return s&^0xff == 0 }
