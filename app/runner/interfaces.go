package runner

type ManagerInterface interface {
	Start()
	Stop()
	Enqueue(request Request) error
	ActiveRun() string
}
