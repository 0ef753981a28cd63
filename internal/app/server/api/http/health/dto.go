package health

type Input struct{}

type Output struct {
	Body Response
}

type Response struct {
	Status   string `json:"status" example:"OK" doc:"Overall status of the record service"`
	Database string `json:"database" example:"up" enum:"up,unchecked" doc:"Record store reachability"`
}
