/*
Package browser implements the browser-automation rendering strategy.

An attempt drives a headless browser through a fixed sequence of states:

	Acquire -> Launch -> Navigate -> LocateInput -> InjectText -> AwaitRender -> LocateOutput -> Teardown

Each state maps its failure to one domain.ErrorKind. Teardown runs on every exit path,
and a context.AfterFunc forcibly closes the session as soon as the attempt context ends,
so a timed-out attempt never leaves a browser behind.

Element discovery is data-driven: ordered selector Candidates per Role are probed and the
first existing element wins. The browser itself sits behind the Driver interface; see the
rod, chromedp and playwright subpackages.
*/
package browser
