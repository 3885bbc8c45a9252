package stats

/*
This file defines all the metrics being collected. As new metrics are added please follow this pattern.
*/

const (
	/************************* Work range metrics **************************/
	/*
		time spent claiming a chunk in GetWork, including spinning on the local lock
	*/
	DtreeGetWorkLatency_ns = "getworkLatency_ns"

	/*
		number of GetWork calls that returned a chunk
	*/
	DtreeGetWorkCounter = "getworkCounter"

	/*
		number of GetWork calls that found the local range empty
	*/
	DtreeGetWorkEmptyCounter = "getworkEmptyCounter"

	/*
		number of work items handed to local threads
	*/
	DtreeItemsClaimedCounter = "itemsClaimedCounter"

	/*
		number of items left unclaimed in the local range after the last update
	*/
	DtreeLocalItemsGauge = "localItemsGauge"

	/*
		relative speed of this node, as given at creation
	*/
	DtreeNodeMultiplierGauge = "nodeMultiplierGauge"

	/************************* Coordinator metrics **************************/
	/*
		time spent in one coordinator step
	*/
	DtreeRunLatency_ns = "runtreeLatency_ns"

	/*
		number of coordinator steps executed
	*/
	DtreeRunCounter = "runtreeCounter"

	/*
		number of coordinator steps that neither sent nor received anything
	*/
	DtreeIdleStepCounter = "idleStepCounter"

	/*
		time between asking the parent for work and its supply arriving
	*/
	DtreeParentWaitLatency_ms = "parentWaitLatency_ms"

	/*
		number of messages posted to the transport
	*/
	DtreeSendCounter = "sendCounter"

	/*
		number of supplies received from the parent (empty ones included)
	*/
	DtreeSupplyReceivedCounter = "supplyReceivedCounter"

	/*
		number of work items received from the parent
	*/
	DtreeItemsReceivedCounter = "itemsReceivedCounter"

	/*
		number of child requests answered with work
	*/
	DtreeChildServedCounter = "childServedCounter"

	/*
		number of work items forwarded to children
	*/
	DtreeItemsForwardedCounter = "itemsForwardedCounter"

	/*
		number of child requests that had to wait for the parent's supply
	*/
	DtreeChildDeferredCounter = "childDeferredCounter"

	/*
		number of children told that no work remains
	*/
	DtreeChildFinishedCounter = "childFinishedCounter"

	/*
		number of transport failures that stopped the run
	*/
	DtreeTransportErrorCounter = "transportErrorCounter"

	/************************* Demo metrics **************************/
	/*
		number of work items processed by the demo workers of a node
	*/
	DemoItemsProcessedCounter = "itemsProcessedCounter"

	/*
		wall time a demo node spent from creation to global exhaustion
	*/
	DemoRunTimeGauge_ms = "runTimeGauge_ms"
)
